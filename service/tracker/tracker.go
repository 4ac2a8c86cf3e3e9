package tracker

import (
	"context"

	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// Page is one page of issues. NextCursor is the cursor of the following page.
type Page struct {
	Issues     []*model.Ticket
	NextCursor int
	Total      int
}

// Tracker fetches the issues of a project page by page, starting at cursor 0
type Tracker interface {
	FetchIssues(ctx context.Context, project string, cursor int) (Page, error)
}

// FetchAll fetches pages until the cursor reaches the reported total
func FetchAll(ctx context.Context, tracker Tracker, project string) ([]*model.Ticket, error) {
	var tickets []*model.Ticket
	cursor := 0
	for {
		page, err := tracker.FetchIssues(ctx, project, cursor)
		if err != nil {
			return nil, helper.NewError("fetch issues", err)
		}
		tickets = append(tickets, page.Issues...)

		if page.NextCursor >= page.Total || len(page.Issues) == 0 {
			return tickets, nil
		}
		cursor = page.NextCursor
	}
}
