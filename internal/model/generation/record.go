package generation

import "time"

// Record logs one completed prompt->sentiment->text interaction.
// Records are immutable once appended to a session history.
type Record struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Prompt     string    `json:"prompt"`
	Sentiment  string    `json:"sentiment"`
	Score      float64   `json:"score,omitempty"`
	Candidates []string  `json:"candidates"`
	Generator  string    `json:"generator"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Text returns the primary candidate, the one a simple client renders.
func (r Record) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0]
}
