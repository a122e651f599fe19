// internal/workers/search/answer-query/related.go
package answerquery

import (
	"fmt"

	"wizkid-search/internal/models"
)

// Related returns five follow-up prompts for the intent.
func Related(intent models.Intent, subject string) []models.Related {
	item := func(label, format string) models.Related {
		return models.Related{Label: label, Prompt: fmt.Sprintf(format, subject)}
	}
	switch intent {
	case models.IntentPeople:
		return []models.Related{
			item("Achievements", "What are %s's most notable achievements?"),
			item("Controversies", "What controversies or legal issues has %s faced?"),
			item("Early life", "What was %s's early life and background?"),
			item("Career timeline", "Give a brief career timeline of %s with dates."),
			item("Interviews", "Summarize recent interviews with %s."),
		}
	case models.IntentCompany:
		return []models.Related{
			item("Founders", "Who founded %s, and when?"),
			item("Leadership", "Who are the key leaders at %s?"),
			item("Financials", "What are the latest revenue/funding details for %s?"),
			item("Competitors", "Who are the main competitors of %s?"),
			item("News", "What are the latest news headlines about %s?"),
		}
	case models.IntentLocal:
		return []models.Related{
			item("Closest options", "Show the closest %s options."),
			item("Open now", "Which %s nearby are open now?"),
			item("Call & contact", "List %s near me with phone numbers."),
			item("Top rated", "Which %s near me are best rated online?"),
			item("Map view", "Show %s near me with map links."),
		}
	default:
		return []models.Related{
			item("Overview", "Give a concise overview of %s."),
			item("Pros & cons", "What are the pros and cons of %s?"),
			item("How-to", "How do I get started with %s?"),
			item("Alternatives", "What are good alternatives to %s?"),
			item("Deeper dive", "Deep dive into %s with references."),
		}
	}
}
