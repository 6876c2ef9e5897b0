package sexpr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSourceBasicForms(t *testing.T) {
	src := `
; a comment
(defsrc a b c)
#| block
   comment |#
(deflayer base b c a)
`
	res, err := ReadSource("test.kbd", src, "linux")
	require.NoError(t, err)
	require.Len(t, res.TopLevel, 2)
	require.Equal(t, "defsrc", res.TopLevel[0].Form.Head())
	require.Equal(t, "deflayer", res.TopLevel[1].Form.Head())
}

func TestReadSourceQuotedAtomWithWhitespace(t *testing.T) {
	src := `(defcfg sequence-timeout "5 00")`
	res, err := ReadSource("test.kbd", src, "linux")
	require.NoError(t, err)
	require.Len(t, res.TopLevel, 1)
	rest := res.TopLevel[0].Form.Rest()
	require.Len(t, rest, 2)
	atom, ok := rest[1].(*Atom)
	require.True(t, ok)
	require.True(t, atom.Quoted)
	require.Equal(t, "5 00", atom.Value)
}

func TestReadSourcePlatformConditionalFiltering(t *testing.T) {
	src := `
(deflocalkeys-linux (myKey 100))
(deflocalkeys-win (myKey 200))
(defsrc a)
`
	res, err := ReadSource("test.kbd", src, "linux")
	require.NoError(t, err)
	require.Len(t, res.TopLevel, 2)
	require.Equal(t, "deflocalkeys-linux", res.TopLevel[0].Form.Head())
	require.Len(t, res.Inactive, 1)
	require.Equal(t, "win", res.Inactive[0].Platform)
}

func TestReadIncludeExpansion(t *testing.T) {
	dir := t.TempDir()
	childPath := filepath.Join(dir, "child.kbd")
	require.NoError(t, os.WriteFile(childPath, []byte("(defsrc a b)\n"), 0o644))
	mainPath := filepath.Join(dir, "main.kbd")
	require.NoError(t, os.WriteFile(mainPath, []byte(`(include "child.kbd")
(deflayer base a b)
`), 0o644))

	res, err := Read(mainPath, "linux")
	require.NoError(t, err)
	require.Len(t, res.TopLevel, 2)
	require.Equal(t, "defsrc", res.TopLevel[0].Form.Head())
	require.Equal(t, "deflayer", res.TopLevel[1].Form.Head())
}

func TestReadIncludeCycleRejected(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.kbd")
	bPath := filepath.Join(dir, "b.kbd")
	require.NoError(t, os.WriteFile(aPath, []byte(`(include "b.kbd")`), 0o644))
	require.NoError(t, os.WriteFile(bPath, []byte(`(include "a.kbd")`), 0o644))

	_, err := Read(aPath, "linux")
	require.Error(t, err)
}

func TestParseUnclosedListIsSyntaxError(t *testing.T) {
	_, err := ReadSource("test.kbd", "(defsrc a b", "linux")
	require.Error(t, err)
}
