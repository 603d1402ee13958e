package ado

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	// AssignedQuery lists everything assigned to the caller, most recently changed first.
	AssignedQuery = "SELECT [System.Id], [System.WorkItemType] FROM WorkItems WHERE [System.AssignedTo] = @Me ORDER BY [System.ChangedDate] DESC"

	// BacklogQuery lists the caller's open backlog items.
	BacklogQuery = "SELECT [System.Id], [System.WorkItemType] FROM WorkItems WHERE [System.WorkItemType] IN ('Product Backlog Item','User Story','Feature') AND [System.State] <> 'Done' AND [System.AssignedTo] = @Me ORDER BY [System.ChangedDate] DESC"
)

// Search holds the two work item lists offered when picking what to log against.
type Search struct {
	Assigned []WorkItem
	Backlog  []WorkItem
}

// SearchAssigned runs the assigned and backlog queries concurrently.
func (c *Client) SearchAssigned(ctx context.Context, organization, projectID string) (Search, error) {
	var s Search
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := c.QueryWorkItems(ctx, organization, projectID, AssignedQuery)
		s.Assigned = items
		return err
	})
	g.Go(func() error {
		items, err := c.QueryWorkItems(ctx, organization, projectID, BacklogQuery)
		s.Backlog = items
		return err
	})
	if err := g.Wait(); err != nil {
		return Search{}, err
	}
	return s, nil
}
