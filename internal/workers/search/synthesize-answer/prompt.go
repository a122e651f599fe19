// internal/workers/search/synthesize-answer/prompt.go
package synthesizeanswer

import (
	"fmt"
	"strings"

	"wizkid-search/internal/models"
)

const (
	peopleInstruction = `You are Wizkid, a citation-first assistant.
Write a concise PERSON BIO in <= 200 words (6-10 sentences).
STRICT RULES:
- Use ONLY the numbered sources below. If a fact isn't supported there, omit it.
- After EACH sentence, include a [n] citation. No sentence without a citation.
- Prefer dated facts and current titles. If dates conflict, omit the claim.
- Keep a neutral tone. No meta commentary or speculation.`

	topicInstruction = `You are Wizkid, a citation-first assistant.
Write a concise answer in <= 180 words with per-sentence [n] citations referencing the numbered sources.
Only use facts supported by sources. Keep a neutral tone. No meta commentary.`

	simpleRegister = "Use plain language a newcomer can follow."
	expertRegister = "Write for an expert reader; precise terminology is fine."
)

// BuildPrompt renders the instruction, the topic and the numbered sources.
func BuildPrompt(in *Input) string {
	var b strings.Builder
	if in.Intent == models.IntentPeople {
		b.WriteString(peopleInstruction)
	} else {
		b.WriteString(topicInstruction)
	}
	b.WriteString("\n")
	if in.Style == models.StyleExpert {
		b.WriteString(expertRegister)
	} else {
		b.WriteString(simpleRegister)
	}

	if in.Intent == models.IntentPeople {
		fmt.Fprintf(&b, "\n\nSubject: %s\n", in.Topic())
	} else {
		fmt.Fprintf(&b, "\n\nQuery: %s\n", in.Question)
	}

	b.WriteString("\nNumbered sources:\n")
	for i, c := range in.Citations {
		fmt.Fprintf(&b, "[%d] %s — %s\n", i+1, c.Title, c.URL)
	}
	return b.String()
}
