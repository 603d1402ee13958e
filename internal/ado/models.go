package ado

import (
	"strconv"
	"strings"
)

// Well-known work item field reference names.
const (
	FieldID            = "System.Id"
	FieldType          = "System.WorkItemType"
	FieldTitle         = "System.Title"
	FieldState         = "System.State"
	FieldAssignedTo    = "System.AssignedTo"
	FieldIterationPath = "System.IterationPath"
	FieldAreaPath      = "System.AreaPath"
	FieldTags          = "System.Tags"
	FieldDescription   = "System.Description"
	FieldTeamProject   = "System.TeamProject"
)

// RelParent is the relation kind linking a child to its parent.
const RelParent = "System.LinkTypes.Hierarchy-Reverse"

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state"`
}

type projectsResponse struct {
	Count int       `json:"count"`
	Value []Project `json:"value"`
}

type Relation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// WorkItem is a work item as returned by the work item tracking API.
type WorkItem struct {
	ID        int            `json:"id"`
	Rev       int            `json:"rev"`
	Fields    map[string]any `json:"fields"`
	Relations []Relation     `json:"relations"`
	URL       string         `json:"url"`
}

type workItemsResponse struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	QueryType string `json:"queryType"`
	WorkItems []struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	} `json:"workItems"`
}

// Field returns a string-valued field, or "" when absent or not a string.
func (w *WorkItem) Field(name string) string {
	if w == nil || w.Fields == nil {
		return ""
	}
	s, _ := w.Fields[name].(string)
	return s
}

func (w *WorkItem) Type() string  { return w.Field(FieldType) }
func (w *WorkItem) Title() string { return w.Field(FieldTitle) }

// AssignedTo returns the assignee display name. The API returns an identity
// object; older servers return a "Name <email>" string.
func (w *WorkItem) AssignedTo() string {
	if w == nil || w.Fields == nil {
		return ""
	}
	switch v := w.Fields[FieldAssignedTo].(type) {
	case map[string]any:
		name, _ := v["displayName"].(string)
		return name
	case string:
		if i := strings.Index(v, " <"); i > 0 {
			return v[:i]
		}
		return v
	}
	return ""
}

// ParentID extracts the parent work item id from the reverse-hierarchy relation.
func (w *WorkItem) ParentID() (int, bool) {
	if w == nil {
		return 0, false
	}
	for _, r := range w.Relations {
		if r.Rel != RelParent {
			continue
		}
		u := strings.TrimRight(r.URL, "/")
		id, err := strconv.Atoi(u[strings.LastIndex(u, "/")+1:])
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}
