// Package entry turns drafts into the payloads the timesheet backend accepts.
package entry

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/hierarchy"
	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/timesheet"
)

// Resolver enriches a work item with its details and ancestors.
type Resolver interface {
	Resolve(ctx context.Context, id int, organization, project string) hierarchy.Result
}

// Draft is a log the user is about to submit. Title, Type and URL are
// fallbacks used when the work item cannot be resolved.
type Draft struct {
	Organization string
	Project      string
	WorkItemID   int
	Title        string
	Type         string
	URL          string
	Description  string
	Hours        int
	Minutes      int
	LogDate      time.Time
}

// Duration returns the draft's time in minutes.
func (d Draft) Duration() int {
	return d.Hours*60 + d.Minutes
}

type Assembler struct {
	resolver Resolver
	now      func() time.Time
	logger   *slog.Logger
}

// NewAssembler returns an Assembler. A nil now uses time.Now.
func NewAssembler(resolver Resolver, now func() time.Time, logger *slog.Logger) *Assembler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{resolver: resolver, now: now, logger: logger}
}

// CreatePayload builds the addLog body for d. The resolution result is
// returned too so callers can inspect the resolved assignee. Resolution
// failures leave the ancestor fields null and fall back to the draft values.
func (a *Assembler) CreatePayload(ctx context.Context, d Draft, org model.Organization) (timesheet.CreatePayload, hierarchy.Result) {
	var res hierarchy.Result
	if a.resolver != nil {
		res = a.resolver.Resolve(ctx, d.WorkItemID, d.Organization, d.Project)
	}
	details := res.Details
	if details.IsZero() {
		a.logger.Debug("assembling payload without work item details", "id", d.WorkItemID)
	}

	url := d.URL
	if url == "" {
		url = ado.WebURL(d.Organization, d.Project, d.WorkItemID)
	}

	logDate := d.LogDate
	if logDate.IsZero() {
		logDate = a.now()
	}

	p := timesheet.CreatePayload{
		Organization:  d.Organization,
		ProjectName:   d.Project,
		WorkItem:      d.WorkItemID,
		WorkItemTitle: firstNonEmpty(details.Title, d.Title),
		WorkItemType:  firstNonEmpty(details.Type, d.Type),
		LogDate:       model.FormatDay(logDate),
		CreatedOn:     model.FormatDay(a.now()),
		DeveloperName: org.DisplayName,
		AssignedTo:    org.DisplayName,
		HoursSpent:    d.Hours,
		MinutesSpent:  d.Minutes,
		WorkItemURL:   url,
		Description:   d.Description,

		WorkItemState:       optional(details.State),
		IterationPath:       optional(details.IterationPath),
		AreaPath:            optional(details.AreaPath),
		Tags:                optional(details.Tags),
		WorkItemDescription: optional(details.Description),
	}
	if p.WorkItemTitle == "" {
		p.WorkItemTitle = strconv.Itoa(d.WorkItemID)
	}

	if us := res.Hierarchy.UserStory; us != nil {
		p.UserStoryID, p.UserStoryTitle, p.UserStoryDescription = flatten(us)
	}
	if f := res.Hierarchy.Feature; f != nil {
		p.FeatureID, p.FeatureTitle, p.FeatureDescription = flatten(f)
	}
	if e := res.Hierarchy.Epic; e != nil {
		p.EpicID, p.EpicTitle, p.EpicDescription = flatten(e)
	}
	return p, res
}

// UpdatePayload builds the updateLog body. Identity fields are never re-sent.
func (a *Assembler) UpdatePayload(id model.LogID, hours, minutes int, description string) timesheet.UpdatePayload {
	return timesheet.UpdatePayload{
		LogID:        id,
		HoursSpent:   hours,
		MinutesSpent: minutes,
		Description:  description,
	}
}

func flatten(a *hierarchy.Ancestor) (*int, *string, *string) {
	id := a.ID
	title := a.Title
	return &id, &title, optional(a.Description)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
