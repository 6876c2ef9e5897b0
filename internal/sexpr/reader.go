package sexpr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"layerkeyd/internal/diag"
)

// Result is everything the reader produces from one entry file: the
// ordered top-level forms (includes already expanded, inactive
// platform-conditional blocks filtered out), the inactive blocks kept
// aside for LSP-style hints, and the file table every Span indexes into.
type Result struct {
	TopLevel []TopLevel
	Inactive []InactiveBlock
	Files    *diag.FileTable
}

// Read parses path and every file it (transitively) includes via
// `(include "path")` forms, rejecting cycles (a canonical path included
// again while it is still being read) and filtering `deflocalkeys-<platform>` forms down to the
// active platform.
func Read(path, platform string) (*Result, error) {
	files := diag.NewFileTable()
	res := &Result{Files: files}
	visiting := map[string]bool{}
	if err := readFile(path, platform, files, res, visiting); err != nil {
		return nil, err
	}
	return res, nil
}

// ReadSource parses in-memory source as if it were the named file, with no
// include expansion performed against the filesystem beyond this one
// buffer (used by tests).
func ReadSource(name, src, platform string) (*Result, error) {
	files := diag.NewFileTable()
	res := &Result{Files: files}
	fileID := files.Intern(name, src)
	forms, err := ParseString(fileID, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, f := range forms {
		classifyForm(name, f, platform, res)
	}
	return res, nil
}

func readFile(path, platform string, files *diag.FileTable, res *Result, visiting map[string]bool) error {
	canon, err := filepath.Abs(path)
	if err != nil {
		canon = path
	}
	if visiting[canon] {
		return fmt.Errorf("include cycle detected at %s", path)
	}
	visiting[canon] = true
	defer delete(visiting, canon)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	fileID := files.Intern(path, string(data))
	forms, err := ParseString(fileID, string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for _, f := range forms {
		if f.Head() == "include" {
			incPath, ok := includePath(f)
			if !ok {
				return fmt.Errorf("%s: include requires exactly one string path argument", path)
			}
			resolved := incPath
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(filepath.Dir(path), incPath)
			}
			if err := readFile(resolved, platform, files, res, visiting); err != nil {
				return err
			}
			continue
		}
		classifyForm(path, f, platform, res)
	}
	return nil
}

func includePath(f *List) (string, bool) {
	rest := f.Rest()
	if len(rest) != 1 {
		return "", false
	}
	a, ok := rest[0].(*Atom)
	if !ok {
		return "", false
	}
	return a.Value, true
}

func classifyForm(file string, f *List, platform string, res *Result) {
	head := f.Head()
	const prefix = "deflocalkeys-"
	if strings.HasPrefix(head, prefix) {
		formPlatform := strings.TrimPrefix(head, prefix)
		if formPlatform != platform {
			res.Inactive = append(res.Inactive, InactiveBlock{Platform: formPlatform, Form: f, File: file})
			return
		}
	}
	res.TopLevel = append(res.TopLevel, TopLevel{Form: f, File: file})
}
