package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ============================================================================
// DECODING — Ordered encoding fallback
// ============================================================================
// Candidates are tried in order; the first that decodes strictly AND parses
// as CSV wins. Strict means:
//   utf-8 / utf-8-sig → bytes are valid UTF-8 (utf-8-sig drops a leading BOM)
//   single-byte       → no U+FFFD in the output; charsets with undefined
//                       bytes (windows-1252, ...) also reject C1 controls so
//                       those bytes fall through to a later candidate
//   iso-8859-1/-15    → every byte is defined, so these never reject
//
// The detector only reorders the single-byte candidates. UTF-8 validity is
// self-checking, so UTF-8 candidates keep their configured position.
// ============================================================================

// DefaultEncodings is the fallback order used when none is configured.
var DefaultEncodings = []string{"utf-8-sig", "utf-8", "windows-1252", "iso-8859-1"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errInvalidText = errors.New("invalid text for encoding")

// candidate is one encoding the loader can try.
type candidate struct {
	name    string
	charset encoding.Encoding // nil for the UTF-8 family
}

var charsets = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"cp850":        charmap.CodePage850,
	"macintosh":    charmap.Macintosh,
}

// definesEveryByte lists the charsets whose C1 range is real text.
var definesEveryByte = map[string]bool{
	"iso-8859-1":  true,
	"iso-8859-15": true,
}

var encodingAliases = map[string]string{
	"utf8":       "utf-8",
	"utf8-sig":   "utf-8-sig",
	"utf-8-bom":  "utf-8-sig",
	"cp1252":     "windows-1252",
	"latin1":     "iso-8859-1",
	"latin-1":    "iso-8859-1",
	"iso8859-1":  "iso-8859-1",
	"latin9":     "iso-8859-15",
	"latin-9":    "iso-8859-15",
	"ibm850":     "cp850",
	"mac-roman":  "macintosh",
	"macroman":   "macintosh",
	"iso8859-15": "iso-8859-15",
}

// CanonicalEncoding returns the canonical name of a supported encoding.
func CanonicalEncoding(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	if alias, ok := encodingAliases[n]; ok {
		n = alias
	}
	if n == "utf-8" || n == "utf-8-sig" {
		return n, nil
	}
	if _, ok := charsets[n]; ok {
		return n, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", name)
}

func newCandidates(names []string) ([]candidate, error) {
	if len(names) == 0 {
		names = DefaultEncodings
	}
	seen := make(map[string]bool, len(names))
	out := make([]candidate, 0, len(names))
	for _, name := range names {
		canon, err := CanonicalEncoding(name)
		if err != nil {
			return nil, err
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, candidate{name: canon, charset: charsets[canon]})
	}
	return out, nil
}

// decode converts data to a string under this candidate, or fails.
func (c candidate) decode(data []byte) (string, error) {
	switch c.name {
	case "utf-8-sig":
		data = bytes.TrimPrefix(data, utf8BOM)
		fallthrough
	case "utf-8":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid UTF-8 sequence", errInvalidText)
		}
		return string(data), nil
	}

	out, err := c.charset.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	allowC1 := definesEveryByte[c.name]
	for i, r := range string(out) {
		if r == utf8.RuneError || (!allowC1 && r >= 0x80 && r <= 0x9F) {
			return "", fmt.Errorf("%w: undefined byte at offset %d", errInvalidText, i)
		}
	}
	return string(out), nil
}

// detectorNames maps chardet charset names to candidate names.
var detectorNames = map[string]string{
	"ISO-8859-1":   "iso-8859-1",
	"ISO-8859-15":  "iso-8859-15",
	"windows-1252": "windows-1252",
}

// orderByDetection moves the detector's single-byte guesses to the front of
// the single-byte block, keeping UTF-8 candidates where they are.
func orderByDetection(cands []candidate, data []byte) []candidate {
	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil || len(results) == 0 {
		return cands
	}

	rank := make(map[string]int)
	for i, r := range results {
		if name, ok := detectorNames[r.Charset]; ok {
			if _, seen := rank[name]; !seen {
				rank[name] = i
			}
		}
	}
	if len(rank) == 0 {
		return cands
	}

	var single []candidate
	for _, c := range cands {
		if c.charset != nil {
			single = append(single, c)
		}
	}
	ordered := make([]candidate, 0, len(single))
	for len(single) > 0 {
		best := 0
		for i, c := range single {
			if betterGuess(rank, c.name, single[best].name) {
				best = i
			}
		}
		ordered = append(ordered, single[best])
		single = append(single[:best], single[best+1:]...)
	}

	out := make([]candidate, len(cands))
	next := 0
	for i, c := range cands {
		if c.charset == nil {
			out[i] = c
			continue
		}
		out[i] = ordered[next]
		next++
	}
	return out
}

// betterGuess reports whether a ranks ahead of b; unranked names keep order.
func betterGuess(rank map[string]int, a, b string) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	default:
		return false
	}
}
