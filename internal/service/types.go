// Package service defines the backend-agnostic interface for task operations.
package service

import "time"

// Status is the workflow state of a task.
type Status string

const (
	StatusActive    Status = "active"
	StatusReview    Status = "review"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus parses a status name (case-sensitive).
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// Priority is the task priority. Zero means unset.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Valid reports whether p is one of low, medium, high.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return "unset"
}

// ParsePriority accepts "low", "medium", "high" or 1-3.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "low", "1":
		return PriorityLow, true
	case "medium", "2":
		return PriorityMedium, true
	case "high", "3":
		return PriorityHigh, true
	}
	return 0, false
}

// Task represents a single task record.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      string     `json:"user_id"`
}

// Clone returns a deep copy of t. Pointer fields are not shared.
func (t Task) Clone() Task {
	c := t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}

// NewTask holds the fields for creating a task.
type NewTask struct {
	Title       string
	Description *string
	IsCompleted bool
	Priority    Priority
	Status      Status // empty means active
	DueDate     *time.Time
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	IsCompleted *bool
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time

	// ClearDescription and ClearDueDate null the nullable fields.
	ClearDescription bool
	ClearDueDate     bool
}

// Empty reports whether the patch sets nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil &&
		p.Priority == nil && p.Status == nil && p.DueDate == nil &&
		!p.ClearDescription && !p.ClearDueDate
}

// Apply merges the patch into a copy of t and keeps the status and
// completion flag consistent: setting IsCompleted=true moves the task to
// completed, setting IsCompleted=false moves a completed task back to active.
// A status-only patch never touches IsCompleted.
func (p TaskPatch) Apply(t Task) Task {
	u := t.Clone()
	if p.Title != nil {
		u.Title = *p.Title
	}
	if p.ClearDescription {
		u.Description = nil
	} else if p.Description != nil {
		d := *p.Description
		u.Description = &d
	}
	if p.Priority != nil {
		u.Priority = *p.Priority
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.ClearDueDate {
		u.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		u.DueDate = &d
	}
	if p.IsCompleted != nil {
		u.IsCompleted = *p.IsCompleted
		if *p.IsCompleted {
			u.Status = StatusCompleted
		} else if u.Status == StatusCompleted {
			u.Status = StatusActive
		}
	}
	return u
}

// MergeReturned overlays a server-returned record on the local copy.
// The server wins on every field it returns; empty identity and timestamp
// fields are treated as not returned and keep the local value.
func MergeReturned(local, server Task) Task {
	m := server.Clone()
	if m.ID == "" {
		m.ID = local.ID
	}
	if m.Title == "" {
		m.Title = local.Title
	}
	if !m.Priority.Valid() {
		m.Priority = local.Priority
	}
	if m.Status == "" {
		m.Status = local.Status
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = local.CreatedAt
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = local.UpdatedAt
	}
	if m.UserID == "" {
		m.UserID = local.UserID
	}
	return m
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// StatusPtr returns a pointer to s.
func StatusPtr(s Status) *Status { return &s }

// PriorityPtr returns a pointer to p.
func PriorityPtr(p Priority) *Priority { return &p }
