package ado

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	workItemURLRe = regexp.MustCompile(`^https://dev\.azure\.com/([^/]+)/([^/]+)/_workitems/edit/(\d+)`)
)

// Sanitize keeps only alphanumerics, hyphens and underscores so a value can be
// placed in a request path.
func Sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "")
}

// ParseWorkItemID parses a work item id, which must be a positive integer.
func ParseWorkItemID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid work item id %q", s)
	}
	return id, nil
}

// Ref identifies a work item within an organization and project.
type Ref struct {
	Organization string `json:"organization"`
	Project      string `json:"project"`
	ID           int    `json:"id"`
}

// ParseWorkItemURL extracts organization, project and id from a work item page URL
// such as https://dev.azure.com/org/project/_workitems/edit/123.
func ParseWorkItemURL(raw string) (Ref, error) {
	m := workItemURLRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Ref{}, fmt.Errorf("not an Azure DevOps work item URL: %s", raw)
	}
	org, err := url.PathUnescape(m[1])
	if err != nil {
		return Ref{}, fmt.Errorf("decoding organization: %w", err)
	}
	project, err := url.PathUnescape(m[2])
	if err != nil {
		return Ref{}, fmt.Errorf("decoding project: %w", err)
	}
	id, err := ParseWorkItemID(m[3])
	if err != nil {
		return Ref{}, err
	}
	return Ref{Organization: org, Project: project, ID: id}, nil
}

// WebURL builds the browser URL of a work item.
func WebURL(organization, project string, id int) string {
	return fmt.Sprintf("https://dev.azure.com/%s/%s/_workitems/edit/%d",
		url.PathEscape(organization), url.PathEscape(project), id)
}
