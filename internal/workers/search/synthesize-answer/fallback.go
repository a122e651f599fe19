// internal/workers/search/synthesize-answer/fallback.go
package synthesizeanswer

import (
	"fmt"
	"strings"
	"unicode"

	"wizkid-search/internal/models"
)

const apology = "I couldn't find enough sources to answer that. Try refining your query with a full name, place or more detail."

// StitchedText builds an answer from the first n citation snippets.
func StitchedText(cites []models.Citation, n int) string {
	if len(cites) == 0 {
		return apology
	}
	if len(cites) > n {
		cites = cites[:n]
	}
	lines := make([]string, 0, len(cites))
	for i, c := range cites {
		lines = append(lines, fmt.Sprintf("%s [%d]: %s", c.Title, i+1, c.Snippet))
	}
	return strings.Join(lines, "\n")
}

// Chunk splits text into pieces of at most size runes, preferring to break
// after whitespace. Joining the pieces yields text.
func Chunk(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		if len(runes) <= size {
			out = append(out, string(runes))
			break
		}
		cut := size
		for i := size - 1; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i + 1
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	return out
}
