package domain

import "time"

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Incident types offered by the web form. The stored value is free-form.
var IncidentTypes = []string{"infrastructure", "application", "security", "network", "database", "other"}

// Widths of the incidents.title and incidents.incident_type columns, in characters.
const (
	MaxTitleLength        = 100
	MaxIncidentTypeLength = 50
)

type Incident struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	IncidentType string     `json:"incident_type"`
	CreatorID    int64      `json:"creator_id"`
	AssigneeID   *int64     `json:"assignee_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

// IncidentFilter is an AND of equality predicates. Zero values impose no constraint.
type IncidentFilter struct {
	Status        Status
	Priority      Priority
	IncidentType  string
	CreatorID     int64
	AssigneeID    int64
	ExcludeClosed bool
	Limit         int
}

type Comment struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	IncidentID int64     `json:"incident_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}
