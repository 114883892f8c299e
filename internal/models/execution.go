package models

import "time"

// Execution records one delivery attempt for a reminder and whether the
// user acknowledged it. PublicID is the opaque token embedded in the
// notification's confirm button, so the bot callback never exposes row ids.
type Execution struct {
	ID          int64      `json:"id"`
	PublicID    string     `json:"public_id"`
	ReminderID  int64      `json:"reminder_id"`
	SentAt      time.Time  `json:"sent_at"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// EscalationCandidate is a reminder with outstanding unconfirmed executions
// that qualifies for a repeat delivery.
type EscalationCandidate struct {
	ReminderID int64
	Message    string
}
