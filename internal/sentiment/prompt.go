package sentiment

import (
	"fmt"
	"strings"
)

// PositiveEmojis are offered to the model for positive reviews.
var PositiveEmojis = []string{"😊", "😄", "😀", "😍", "😎", "🥳", "🤩", "🤠"}

const promptTemplate = `Evaluate this product review and guess the language it is written in (for example Turkish, English). ` +
	`Your answer MUST use exactly this format: [EMOJI] - [LANGUAGE] - ([SHORT REMARK]). ` +
	`EMOJI must be a facial expression that conveys the sentiment; do NOT use hand gestures or finger signs. ` +
	`If the sentiment is positive, pick one of these or a similar one at random: %s. ` +
	`For negative or neutral reviews use a different, fitting facial expression emoji. ` +
	`Example: 🤩 - Turkish - (definitely recommend!). Review: '%s'`

// BuildPrompt returns the fixed instruction prompt for one review.
func BuildPrompt(review string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(PositiveEmojis, ", "), review)
}
