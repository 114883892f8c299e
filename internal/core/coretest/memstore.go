// Package coretest provides an in-memory store used by the core and
// scheduler tests in place of the pgx repositories.
package coretest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/models"
)

// MemStore implements core.ReminderStore and core.ExecutionStore over maps.
// Returned reminders and executions are copies, like database rows: mutating
// one has no effect until it is written back through Update.
type MemStore struct {
	mu         sync.Mutex
	reminders  map[int64]*models.Reminder
	executions map[int64]*models.Execution
	nextID     int64
	nextExecID int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		reminders:  make(map[int64]*models.Reminder),
		executions: make(map[int64]*models.Execution),
	}
}

func cloneReminder(r *models.Reminder) *models.Reminder {
	c := *r
	if r.Recurrence != nil {
		rec := *r.Recurrence
		c.Recurrence = &rec
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	if r.LastSentAt != nil {
		t := *r.LastSentAt
		c.LastSentAt = &t
	}
	return &c
}

func cloneExecution(e *models.Execution) *models.Execution {
	c := *e
	if e.ConfirmedAt != nil {
		t := *e.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}

func (m *MemStore) Create(ctx context.Context, r *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.reminders[r.ID] = cloneReminder(r)
	return nil
}

func (m *MemStore) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneReminder(r), nil
}

func (m *MemStore) GetForUser(ctx context.Context, id, userID int64) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || r.UserID != userID {
		return nil, core.ErrNotFound
	}
	return cloneReminder(r), nil
}

func (m *MemStore) Update(ctx context.Context, r *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reminders[r.ID]; !ok {
		return core.ErrNotFound
	}
	m.reminders[r.ID] = cloneReminder(r)
	return nil
}

func (m *MemStore) ListByUser(ctx context.Context, userID int64, opts models.ListOptions) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reminder
	for _, r := range m.reminders {
		if r.UserID != userID {
			continue
		}
		if !opts.IncludeDeleted && r.Status == models.StatusDeleted {
			continue
		}
		out = append(out, cloneReminder(r))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch opts.Sort {
		case "date":
			return a.NextExecution.Before(b.NextExecution)
		case "date_desc":
			return b.NextExecution.Before(a.NextExecution)
		case "id":
			return a.ID < b.ID
		case "id_desc":
			return a.ID > b.ID
		default:
			if models.StatusRank(a.Status) != models.StatusRank(b.Status) {
				return models.StatusRank(a.Status) < models.StatusRank(b.Status)
			}
			return a.NextExecution.Before(b.NextExecution)
		}
	})
	return out, nil
}

func (m *MemStore) DueForFire(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reminder
	for _, r := range m.reminders {
		if r.DeletedAt != nil || r.NextExecution.After(now) {
			continue
		}
		if r.Status == models.StatusPending || (r.Status == models.StatusSent && r.IsRecurring()) {
			out = append(out, cloneReminder(r))
		}
	}
	sortByDue(out)
	return out, nil
}

func (m *MemStore) MissedPending(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reminder
	for _, r := range m.reminders {
		if r.DeletedAt == nil && r.Status == models.StatusPending && !r.NextExecution.After(now) {
			out = append(out, cloneReminder(r))
		}
	}
	sortByDue(out)
	return out, nil
}

func (m *MemStore) StuckSent(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reminder
	for _, r := range m.reminders {
		if r.DeletedAt == nil && r.Status == models.StatusSent && r.IsRecurring() && !r.NextExecution.After(now) {
			out = append(out, cloneReminder(r))
		}
	}
	sortByDue(out)
	return out, nil
}

func sortByDue(rs []*models.Reminder) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].NextExecution.Before(rs[j].NextExecution) })
}

// ---- ExecutionStore ----

func (m *MemStore) CreateExecution(ctx context.Context, e *models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextExecID++
	e.ID = m.nextExecID
	if e.PublicID == "" {
		e.PublicID = uuid.NewString()
	}
	m.executions[e.ID] = cloneExecution(e)
	return nil
}

func (m *MemStore) DeleteExecution(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.executions, id)
	return nil
}

func (m *MemStore) GetExecution(ctx context.Context, id int64) (*models.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneExecution(e), nil
}

func (m *MemStore) GetByPublicID(ctx context.Context, publicID string) (*models.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.PublicID == publicID {
			return cloneExecution(e), nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemStore) ConfirmAllForReminder(ctx context.Context, reminderID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.ReminderID == reminderID && !e.Confirmed {
			e.Confirmed = true
			t := at
			e.ConfirmedAt = &t
		}
	}
	return nil
}

func (m *MemStore) EscalationCandidates(ctx context.Context, cutoff time.Time) ([]*models.EscalationCandidate, error) {
	return m.unconfirmed(&cutoff)
}

func (m *MemStore) UnconfirmedReminders(ctx context.Context) ([]*models.EscalationCandidate, error) {
	return m.unconfirmed(nil)
}

func (m *MemStore) unconfirmed(cutoff *time.Time) ([]*models.EscalationCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := make(map[int64]time.Time)
	for _, e := range m.executions {
		if e.Confirmed {
			continue
		}
		if cur, ok := latest[e.ReminderID]; !ok || e.SentAt.After(cur) {
			latest[e.ReminderID] = e.SentAt
		}
	}
	var out []*models.EscalationCandidate
	for id, sentAt := range latest {
		r, ok := m.reminders[id]
		if !ok || r.DeletedAt != nil {
			continue
		}
		switch r.Status {
		case models.StatusPaused, models.StatusResolved, models.StatusDeleted:
			continue
		}
		if cutoff != nil && sentAt.After(*cutoff) {
			continue
		}
		out = append(out, &models.EscalationCandidate{ReminderID: id, Message: r.Message})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderID < out[j].ReminderID })
	return out, nil
}

// Executions returns copies of the stored executions for assertions.
func (m *MemStore) Executions() []*models.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Execution
	for _, e := range m.executions {
		out = append(out, cloneExecution(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExecutionsFor returns copies of the executions belonging to a reminder.
func (m *MemStore) ExecutionsFor(reminderID int64) []*models.Execution {
	var out []*models.Execution
	for _, e := range m.Executions() {
		if e.ReminderID == reminderID {
			out = append(out, e)
		}
	}
	return out
}
