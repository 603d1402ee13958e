// Package hierarchy resolves a work item's details and its closest User Story,
// Feature and Epic ancestors.
package hierarchy

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/christopherklint97/adotime/internal/ado"
)

// MaxHops bounds the ancestor walk. Reaching it ends the walk without error.
const MaxHops = 50

// Bucket work item types.
const (
	TypeUserStory = "User Story"
	TypeFeature   = "Feature"
	TypeEpic      = "Epic"
)

// Fetcher loads a single work item with its relations.
type Fetcher interface {
	GetWorkItem(ctx context.Context, organization, project string, id int) (*ado.WorkItem, error)
}

// Details is the snapshot of the work item time is logged against.
type Details struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	State         string `json:"state"`
	AssignedTo    string `json:"assignedTo"`
	IterationPath string `json:"iterationPath"`
	AreaPath      string `json:"areaPath"`
	Tags          string `json:"tags"`
	Description   string `json:"description"`
	Project       string `json:"project"`
	Organization  string `json:"organization"`
}

func (d Details) IsZero() bool {
	return d.ID == 0
}

// Ancestor is a captured ancestor in one of the hierarchy buckets.
type Ancestor struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Hierarchy holds the closest ancestor of each bucket type; nil when none was found.
type Hierarchy struct {
	UserStory *Ancestor `json:"userStory"`
	Feature   *Ancestor `json:"feature"`
	Epic      *Ancestor `json:"epic"`
}

type Result struct {
	Details   Details   `json:"details"`
	Hierarchy Hierarchy `json:"hierarchy"`
}

type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
	maxHops int
}

func NewResolver(fetcher Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{fetcher: fetcher, logger: logger, maxHops: MaxHops}
}

// Resolve walks from id up the parent chain. It never fails: invalid input
// yields an empty Result and a failed hop yields whatever was gathered before it.
func (r *Resolver) Resolve(ctx context.Context, id int, organization, project string) Result {
	org := ado.Sanitize(organization)
	proj := ado.Sanitize(project)
	if id <= 0 || org == "" || proj == "" {
		r.logger.Debug("skipping hierarchy resolution", "id", id, "organization", organization, "project", project)
		return Result{}
	}

	acc := accumulator{organization: organization, project: project}
	for wi := range r.chain(ctx, id, org, proj) {
		acc = acc.absorb(wi)
	}
	return acc.result
}

// chain yields the work item and then each parent in turn. It stops at the
// first missing parent link, revisited id, fetch failure or after maxHops items.
func (r *Resolver) chain(ctx context.Context, id int, org, project string) iter.Seq[*ado.WorkItem] {
	return func(yield func(*ado.WorkItem) bool) {
		visited := make(map[int]bool)
		for hop := 0; hop < r.maxHops; hop++ {
			if visited[id] {
				r.logger.Warn("work item hierarchy contains a cycle", "id", id, "hops", hop)
				return
			}
			visited[id] = true

			wi, err := r.fetcher.GetWorkItem(ctx, org, project, id)
			if err != nil {
				r.logger.Warn("resolving work item hierarchy", "id", id, "hops", hop, "error", err)
				return
			}
			if wi.ID == 0 {
				wi.ID = id
			}
			if !yield(wi) {
				return
			}

			parent, ok := wi.ParentID()
			if !ok {
				return
			}
			id = parent
		}
		r.logger.Warn("work item hierarchy exceeded hop limit", "limit", r.maxHops)
	}
}

// accumulator is the fold state of the walk.
type accumulator struct {
	organization string
	project      string
	primed       bool
	result       Result
}

func (a accumulator) absorb(wi *ado.WorkItem) accumulator {
	description := ado.StripHTML(wi.Field(ado.FieldDescription))

	if !a.primed {
		project := wi.Field(ado.FieldTeamProject)
		if project == "" {
			project = a.project
		}
		a.result.Details = Details{
			ID:            wi.ID,
			Title:         wi.Title(),
			Type:          wi.Type(),
			State:         wi.Field(ado.FieldState),
			AssignedTo:    wi.AssignedTo(),
			IterationPath: wi.Field(ado.FieldIterationPath),
			AreaPath:      wi.Field(ado.FieldAreaPath),
			Tags:          wi.Field(ado.FieldTags),
			Description:   description,
			Project:       project,
			Organization:  a.organization,
		}
		a.primed = true
	}

	h := &a.result.Hierarchy
	var slot **Ancestor
	switch wi.Type() {
	case TypeUserStory:
		slot = &h.UserStory
	case TypeFeature:
		slot = &h.Feature
	case TypeEpic:
		slot = &h.Epic
	}
	if slot != nil && *slot == nil {
		*slot = &Ancestor{ID: wi.ID, Title: wi.Title(), Description: description}
	}
	return a
}
