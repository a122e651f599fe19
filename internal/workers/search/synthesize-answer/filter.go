// internal/workers/search/synthesize-answer/filter.go
package synthesizeanswer

import (
	"strconv"
	"strings"
)

// maxHeldDigits bounds how long a digit run after "[" is held. Longer runs
// are plain text; shorter ones closed by "]" are markers, valid or not.
const maxHeldDigits = 20

// citationFilter removes [n] markers whose n is not a citation id. Markers
// may be split across fragments, so an open bracket is held back until it
// resolves.
type citationFilter struct {
	max     int
	pending []rune
}

func newCitationFilter(max int) *citationFilter {
	return &citationFilter{max: max}
}

func (f *citationFilter) Write(s string) string {
	var b strings.Builder
	for _, r := range s {
		f.feed(&b, r)
	}
	return b.String()
}

// Flush releases a held back partial marker.
func (f *citationFilter) Flush() string {
	s := string(f.pending)
	f.pending = f.pending[:0]
	return s
}

func (f *citationFilter) feed(b *strings.Builder, r rune) {
	if len(f.pending) == 0 {
		if r == '[' {
			f.pending = append(f.pending, r)
			return
		}
		b.WriteRune(r)
		return
	}

	switch {
	case r >= '0' && r <= '9' && len(f.pending) <= maxHeldDigits:
		f.pending = append(f.pending, r)
	case r == ']' && len(f.pending) > 1:
		n, err := strconv.Atoi(string(f.pending[1:]))
		if err == nil && n >= 1 && n <= f.max {
			b.WriteString(string(f.pending))
			b.WriteRune(r)
		}
		f.pending = f.pending[:0]
	default:
		b.WriteString(string(f.pending))
		f.pending = f.pending[:0]
		f.feed(b, r)
	}
}
