package transcriber

import (
	"regexp"
	"strings"
)

// State of the transcript at the provider
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// Utterance is one speaker turn
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Status is a polled provider transcript state
type Status struct {
	ID              string
	State           State
	Text            string
	Speakers        int
	DurationSeconds int
	Utterances      []Utterance
	Error           string
}

// Terminal reports if the provider finished with the transcript
func (s *Status) Terminal() bool {
	return s.State == StateCompleted || s.State == StateError
}

var shortSpeakerRegexp = regexp.MustCompile(`(?m)^([A-Z0-9]+): `)

// FormatTranscript builds "Speaker X: text" lines from utterances and counts distinct speakers.
// Falls back to text when there are no usable utterances. Speaker count is at least 1
func FormatTranscript(text string, utterances []Utterance) (string, int) {
	speakers := map[string]bool{}
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		t := strings.TrimSpace(u.Text)
		if u.Speaker == "" || t == "" {
			continue
		}
		speakers[u.Speaker] = true
		lines = append(lines, "Speaker "+u.Speaker+": "+t)
	}
	if len(lines) > 0 {
		text = strings.Join(lines, "\n")
	}
	cnt := len(speakers)
	if cnt == 0 {
		cnt = 1
	}
	return NormalizeTranscript(text), cnt
}

// NormalizeTranscript converts "X: text" lines to "Speaker X: text",
// plain text without speaker markers becomes "Speaker A: text"
func NormalizeTranscript(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = shortSpeakerRegexp.ReplaceAllString(text, "Speaker $1: ")
	if strings.Contains(text, "Speaker ") && strings.Contains(text, ": ") {
		return text
	}
	return "Speaker A: " + text
}
