package model

import (
	"strings"
	"time"
)

// Ticket is an issue tracker ticket. Optional tracker fields are empty strings.
type Ticket struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Assignee    string    `json:"assignee"`
	Creator     string    `json:"creator"`
	IssueType   string    `json:"issue_type"`
	Labels      []string  `json:"labels"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Record converts the ticket into a record with a fixed field order
func (t *Ticket) Record() Record {
	return Record{
		ID: t.Key,
		Fields: []Field{
			{Name: "key", Value: t.Key},
			{Name: "summary", Value: t.Summary},
			{Name: "status", Value: t.Status},
			{Name: "priority", Value: t.Priority},
			{Name: "issue_type", Value: t.IssueType},
			{Name: "assignee", Value: t.Assignee},
			{Name: "creator", Value: t.Creator},
			{Name: "labels", Value: strings.Join(t.Labels, ",")},
			{Name: "created", Value: t.CreatedAt.Format("2006-01-02")},
			{Name: "updated", Value: t.UpdatedAt.Format("2006-01-02")},
			{Name: "description", Value: t.Description},
		},
	}
}

// TicketFilter selects tickets. Empty fields match everything, date bounds are inclusive.
type TicketFilter struct {
	Priorities    []string
	Statuses      []string
	Creators      []string
	Assignees     []string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Match reports whether t passes the filter
func (f TicketFilter) Match(t *Ticket) bool {
	if !matchAny(f.Priorities, t.Priority) ||
		!matchAny(f.Statuses, t.Status) ||
		!matchAny(f.Creators, t.Creator) ||
		!matchAny(f.Assignees, t.Assignee) {
		return false
	}
	if f.CreatedAfter != nil && t.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && t.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// Apply returns the tickets passing the filter, keeping their order
func (f TicketFilter) Apply(tickets []*Ticket) []*Ticket {
	out := make([]*Ticket, 0, len(tickets))
	for _, t := range tickets {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func matchAny(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return true
		}
	}
	return false
}
