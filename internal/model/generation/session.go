package generation

import "time"

// Session captures one transient anonymous browsing session.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
