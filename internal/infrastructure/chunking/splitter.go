package chunking

import "strings"

// LineSplitter splits text on "\n" and "\r\n", trims every line and drops empty ones.
type LineSplitter struct{}

func NewLineSplitter() *LineSplitter {
	return &LineSplitter{}
}

func (s *LineSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
