package hierarchy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/hierarchy"
)

type fakeFetcher struct {
	items map[int]*ado.WorkItem
	fail  map[int]error
	calls []int
	org   string
	proj  string
}

func (f *fakeFetcher) GetWorkItem(_ context.Context, org, project string, id int) (*ado.WorkItem, error) {
	f.calls = append(f.calls, id)
	f.org, f.proj = org, project
	if err, ok := f.fail[id]; ok {
		return nil, err
	}
	wi, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("work item %d not found", id)
	}
	copied := *wi
	return &copied, nil
}

func item(id int, typ, title string, parent int) *ado.WorkItem {
	wi := &ado.WorkItem{
		ID: id,
		Fields: map[string]any{
			ado.FieldType:        typ,
			ado.FieldTitle:       title,
			ado.FieldDescription: "<p>" + title + " details</p>",
		},
	}
	if parent > 0 {
		wi.Relations = []ado.Relation{{
			Rel: ado.RelParent,
			URL: fmt.Sprintf("https://dev.azure.com/contoso/_apis/wit/workItems/%d", parent),
		}}
	}
	return wi
}

func chain(items ...*ado.WorkItem) *fakeFetcher {
	f := &fakeFetcher{items: map[int]*ado.WorkItem{}, fail: map[int]error{}}
	for _, wi := range items {
		f.items[wi.ID] = wi
	}
	return f
}

func TestResolveFullChain(t *testing.T) {
	task := item(1, "Task", "Implement API", 2)
	task.Fields[ado.FieldState] = "Active"
	task.Fields[ado.FieldAssignedTo] = map[string]any{"displayName": "Ada"}
	task.Fields[ado.FieldIterationPath] = "Proj\\Sprint 4"
	task.Fields[ado.FieldAreaPath] = "Proj\\Backend"
	task.Fields[ado.FieldTags] = "api; backend"

	f := chain(
		task,
		item(2, hierarchy.TypeUserStory, "Story", 3),
		item(3, hierarchy.TypeFeature, "Feature", 4),
		item(4, hierarchy.TypeEpic, "Epic", 0),
	)

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 1, "contoso", "proj")

	d := res.Details
	if d.ID != 1 || d.Title != "Implement API" || d.Type != "Task" {
		t.Errorf("details = %+v", d)
	}
	if d.State != "Active" || d.AssignedTo != "Ada" || d.IterationPath != "Proj\\Sprint 4" ||
		d.AreaPath != "Proj\\Backend" || d.Tags != "api; backend" {
		t.Errorf("details fields = %+v", d)
	}
	if d.Description != "Implement API details" {
		t.Errorf("description = %q, want HTML stripped", d.Description)
	}
	if d.Organization != "contoso" || d.Project != "proj" {
		t.Errorf("org/project = %q/%q", d.Organization, d.Project)
	}

	h := res.Hierarchy
	if h.UserStory == nil || h.UserStory.ID != 2 || h.UserStory.Title != "Story" {
		t.Errorf("user story = %+v", h.UserStory)
	}
	if h.UserStory != nil && h.UserStory.Description != "Story details" {
		t.Errorf("user story description = %q", h.UserStory.Description)
	}
	if h.Feature == nil || h.Feature.ID != 3 {
		t.Errorf("feature = %+v", h.Feature)
	}
	if h.Epic == nil || h.Epic.ID != 4 {
		t.Errorf("epic = %+v", h.Epic)
	}
	if len(f.calls) != 4 {
		t.Errorf("fetches = %v, want 4", f.calls)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	f := chain(
		item(10, "Task", "A", 11),
		item(11, hierarchy.TypeUserStory, "B", 10),
	)

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 10, "contoso", "proj")

	if len(f.calls) != 2 {
		t.Errorf("fetches = %v, want each id once", f.calls)
	}
	if res.Details.ID != 10 {
		t.Errorf("details id = %d, want 10", res.Details.ID)
	}
	if res.Hierarchy.UserStory == nil || res.Hierarchy.UserStory.ID != 11 {
		t.Errorf("user story = %+v", res.Hierarchy.UserStory)
	}
}

func TestResolveHopLimit(t *testing.T) {
	f := chain()
	for id := 1; id <= hierarchy.MaxHops+10; id++ {
		f.items[id] = item(id, "Task", fmt.Sprintf("T%d", id), id+1)
	}

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 1, "contoso", "proj")

	if len(f.calls) != hierarchy.MaxHops {
		t.Errorf("fetches = %d, want %d", len(f.calls), hierarchy.MaxHops)
	}
	if res.Details.ID != 1 {
		t.Errorf("details id = %d", res.Details.ID)
	}
}

func TestResolveRootEpic(t *testing.T) {
	f := chain(item(5, hierarchy.TypeEpic, "Platform", 0))

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 5, "contoso", "proj")

	if res.Hierarchy.Epic == nil || res.Hierarchy.Epic.ID != 5 || res.Hierarchy.Epic.Title != "Platform" {
		t.Errorf("epic = %+v", res.Hierarchy.Epic)
	}
	if res.Hierarchy.UserStory != nil || res.Hierarchy.Feature != nil {
		t.Errorf("expected only epic, got %+v", res.Hierarchy)
	}
	if res.Details.ID != 5 || res.Details.Type != hierarchy.TypeEpic {
		t.Errorf("details = %+v", res.Details)
	}
}

// The walk keeps the closest ancestor of each type; upstream never said whether
// that is deliberate or just early-return-on-first-match, so this pins it.
func TestResolveClosestAncestorWins(t *testing.T) {
	f := chain(
		item(1, "Task", "T", 2),
		item(2, hierarchy.TypeFeature, "Near feature", 3),
		item(3, hierarchy.TypeFeature, "Far feature", 0),
	)

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 1, "contoso", "proj")

	if res.Hierarchy.Feature == nil || res.Hierarchy.Feature.ID != 2 {
		t.Errorf("feature = %+v, want closest (2)", res.Hierarchy.Feature)
	}
	if len(f.calls) != 3 {
		t.Errorf("walk should continue to the root, fetches = %v", f.calls)
	}
}

func TestResolveFailureKeepsPartial(t *testing.T) {
	f := chain(
		item(1, "Task", "T", 2),
		item(2, hierarchy.TypeUserStory, "S", 3),
	)
	f.fail[3] = errors.New("boom")

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 1, "contoso", "proj")

	if res.Details.ID != 1 {
		t.Errorf("details id = %d, want 1", res.Details.ID)
	}
	if res.Hierarchy.UserStory == nil || res.Hierarchy.UserStory.ID != 2 {
		t.Errorf("user story = %+v", res.Hierarchy.UserStory)
	}
	if res.Hierarchy.Feature != nil || res.Hierarchy.Epic != nil {
		t.Errorf("unexpected ancestors %+v", res.Hierarchy)
	}
}

func TestResolveFirstFetchFails(t *testing.T) {
	f := chain()
	f.fail[1] = errors.New("unreachable")

	res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), 1, "contoso", "proj")

	if !res.Details.IsZero() {
		t.Errorf("details = %+v, want empty", res.Details)
	}
	if res.Hierarchy != (hierarchy.Hierarchy{}) {
		t.Errorf("hierarchy = %+v, want empty", res.Hierarchy)
	}
}

func TestResolvePreconditions(t *testing.T) {
	tests := []struct {
		name      string
		id        int
		org, proj string
	}{
		{"zero id", 0, "contoso", "proj"},
		{"negative id", -4, "contoso", "proj"},
		{"empty org", 1, "", "proj"},
		{"org sanitizes to empty", 1, "../..", "proj"},
		{"empty project", 1, "contoso", "  "},
	}
	for _, tt := range tests {
		f := chain(item(1, "Task", "T", 0))
		res := hierarchy.NewResolver(f, nil).Resolve(context.Background(), tt.id, tt.org, tt.proj)
		if len(f.calls) != 0 {
			t.Errorf("%s: fetched %v, want no requests", tt.name, f.calls)
		}
		if !res.Details.IsZero() || res.Hierarchy != (hierarchy.Hierarchy{}) {
			t.Errorf("%s: result = %+v, want empty", tt.name, res)
		}
	}
}

func TestResolveSanitizesPath(t *testing.T) {
	f := chain(item(1, "Task", "T", 0))

	hierarchy.NewResolver(f, nil).Resolve(context.Background(), 1, "con/toso", "my proj")

	if f.org != "contoso" || f.proj != "myproj" {
		t.Errorf("request used %q/%q, want sanitized contoso/myproj", f.org, f.proj)
	}
}
