package prompts

import "strings"

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	Subject string
	Grade   string
	Unit    string

	// Chapter stages
	ChapterNumber int
	ChapterTitle  string
	Topics        []string
	OutlineText   string

	// Chapter questions embed the chapter just generated.
	ChapterContent string

	// Fallback and questions-from-content
	ContentText string
}

// TopicsMD renders topics as a markdown bullet list.
func (in Input) TopicsMD() string {
	lines := make([]string, 0, len(in.Topics))
	for _, t := range in.Topics {
		lines = append(lines, "- "+t)
	}
	return strings.Join(lines, "\n")
}
