package model

import "time"

// Bounce records a recipient address the sender mailbox reported as
// undeliverable.
type Bounce struct {
	Address    string    `json:"address" db:"address"`
	Reason     string    `json:"reason" db:"reason"`
	MessageID  string    `json:"message_id" db:"message_id"`
	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
}
