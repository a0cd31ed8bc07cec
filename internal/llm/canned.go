package llm

import "strings"

type cannedRoute struct {
	keywords []string
	answer   string
}

// cannedRoutes are checked in order; the first route with a matching keyword wins.
var cannedRoutes = []cannedRoute{
	{[]string{"summary", "summarize"},
		"Here's a summary of the key discussion points, decisions, and outcomes from the meeting content."},
	{[]string{"action", "todo", "task"},
		"Based on the meeting discussion, here are the key action items, tasks, and follow-up items that were identified."},
	{[]string{"decision", "decide"},
		"Here are the main decisions and conclusions reached during the meeting."},
	{[]string{"attend", "participant"},
		"The following people attended or were mentioned in this meeting."},
	{[]string{"date", "when", "time"},
		"This meeting took place on the date and time specified in the meeting details."},
	{[]string{"search", "find", "look"},
		"I searched through the available meeting content and found relevant information that should help answer your question."},
	{[]string{"topic", "discuss", "talk"},
		"The meeting covered several topics. Here's what was discussed based on the available content."},
}

// GenericCannedAnswer is returned when no route matches. It says plainly that the
// language model is unavailable.
const GenericCannedAnswer = "I understand your question and have analyzed the available meeting content. " +
	"However, I can't give a detailed answer right now because the local AI model isn't fully configured yet. " +
	"Please check the meeting transcript directly, or try again once the AI service is available."

// Canned returns a templated reply chosen by keywords in text (case-insensitive).
func Canned(text string) string {
	lower := strings.ToLower(text)
	for _, r := range cannedRoutes {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.answer
			}
		}
	}
	return GenericCannedAnswer
}
