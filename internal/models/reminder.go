package models

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"
)

// MaxMessageLength is the hard cap on reminder message text.
const MaxMessageLength = 500

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusDeleted   Status = "deleted"
	StatusResolved  Status = "resolved"
)

// ValidStatus reports whether s is one of the six lifecycle statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSent, StatusCompleted, StatusPaused, StatusDeleted, StatusResolved:
		return true
	}
	return false
}

// StatusRank orders statuses for the default list sort.
func StatusRank(s Status) int {
	switch s {
	case StatusPending:
		return 1
	case StatusSent:
		return 2
	case StatusCompleted:
		return 3
	case StatusPaused:
		return 4
	case StatusResolved:
		return 5
	case StatusDeleted:
		return 6
	}
	return 7
}

type RecurrenceType string

const (
	Minutely RecurrenceType = "minutely"
	Hourly   RecurrenceType = "hourly"
	Daily    RecurrenceType = "daily"
	Weekly   RecurrenceType = "weekly"
	Monthly  RecurrenceType = "monthly"
	Yearly   RecurrenceType = "yearly"
)

// Recurrence describes how a reminder repeats: every Interval units of Type.
type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`
}

func (r *Recurrence) Validate() error {
	switch r.Type {
	case Minutely, Hourly, Daily, Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("unknown recurrence type %q", r.Type)
	}
	if r.Interval < 1 {
		return fmt.Errorf("recurrence interval must be positive, got %d", r.Interval)
	}
	return nil
}

// ParseRecurrence decodes a recurrence descriptor from its JSON form.
// An empty or "null" string means no recurrence and returns nil.
func ParseRecurrence(raw string) (*Recurrence, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var rec Recurrence
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("invalid recurrence: %w", err)
	}
	if rec.Interval == 0 {
		rec.Interval = 1
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

type Reminder struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	Message       string      `json:"message"`
	NextExecution time.Time   `json:"next_execution"`
	Recurrence    *Recurrence `json:"recurrence,omitempty"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty"`
	LastSentAt    *time.Time  `json:"last_sent_at,omitempty"`
}

// IsRecurring returns true if this reminder has a recurrence descriptor.
func (r *Reminder) IsRecurring() bool {
	return r.Recurrence != nil
}

// SanitizeMessage trims and HTML-escapes user-supplied message text.
func SanitizeMessage(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// ListOptions controls the read-only listing projection.
type ListOptions struct {
	Sort           string // "status" (default), "date", "date_desc", "id", "id_desc"
	IncludeDeleted bool
}
