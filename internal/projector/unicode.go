package projector

import "golang.org/x/text/unicode/norm"

// normalizeRune NFC-normalizes r so composed and decomposed forms typed
// into defseq/defvirtualkeys macros land identically on the OS (spec.md
// §4.5).
func normalizeRune(r rune) rune {
	n := norm.NFC.String(string(r))
	decoded := []rune(n)
	if len(decoded) == 0 {
		return r
	}
	return decoded[0]
}
