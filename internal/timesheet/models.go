package timesheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/adotime/internal/model"
)

// CreatePayload is the body of addLog. Pointer fields are sent as JSON null
// when unknown.
type CreatePayload struct {
	LogID                *model.LogID `json:"Log_Id"`
	Organization         string       `json:"organization"`
	ProjectName          string       `json:"ProjectName"`
	WorkItem             int          `json:"WorkItem"`
	WorkItemTitle        string       `json:"WorkItemTitle"`
	WorkItemType         string       `json:"WorkItemType"`
	LogDate              string       `json:"LogDate"`
	CreatedOn            string       `json:"CreatedOn"`
	DeveloperName        string       `json:"DeveloperName"`
	HoursSpent           int          `json:"HoursSpent"`
	MinutesSpent         int          `json:"MinutesSpent"`
	WorkItemURL          string       `json:"WorkItemURL"`
	Description          string       `json:"Description"`
	UserStoryID          *int         `json:"UserStoryId"`
	UserStoryTitle       *string      `json:"UserStoryTitle"`
	UserStoryDescription *string      `json:"UserStoryDescription"`
	FeatureID            *int         `json:"FeatureId"`
	FeatureTitle         *string      `json:"FeatureTitle"`
	FeatureDescription   *string      `json:"FeatureDescription"`
	EpicID               *int         `json:"EpicId"`
	EpicTitle            *string      `json:"EpicTitle"`
	EpicDescription      *string      `json:"EpicDescription"`
	WorkItemState        *string      `json:"WorkItemState"`
	AssignedTo           string       `json:"AssignedTo"`
	IterationPath        *string      `json:"IterationPath"`
	Tags                 *string      `json:"Tags"`
	WorkItemDescription  *string      `json:"WorkItemDescription"`
	AreaPath             *string      `json:"AreaPath"`
}

// UpdatePayload is the body of updateLog. Only the mutable fields are sent.
type UpdatePayload struct {
	LogID        model.LogID `json:"Log_Id"`
	HoursSpent   int         `json:"HoursSpent"`
	MinutesSpent int         `json:"MinutesSpent"`
	Description  string      `json:"Description"`
}

type deleteRequest struct {
	LogID        model.LogID `json:"Log_Id"`
	Organization string      `json:"organization"`
}

type createResponse struct {
	LogID flexInt `json:"Log_Id"`
}

// logRecord is a log as returned by getLogs.
type logRecord struct {
	LogID               flexInt `json:"Log_Id"`
	WorkItem            flexInt `json:"WorkItem"`
	WorkItemTitle       string  `json:"WorkItemTitle"`
	WorkItemType        string  `json:"WorkItemType"`
	OrganizationName    string  `json:"OrganizationName"`
	ProjectName         string  `json:"ProjectName"`
	ProjectID           string  `json:"ProjectId"`
	WorkItemState       string  `json:"WorkItemState"`
	AssignedTo          string  `json:"AssignedTo"`
	IterationPath       string  `json:"IterationPath"`
	AreaPath            string  `json:"AreaPath"`
	Tags                string  `json:"Tags"`
	WorkItemURL         string  `json:"WorkItemURL"`
	WorkItemDescription string  `json:"WorkItemDescription"`
	Description         string  `json:"Description"`
	HoursSpent          flexInt `json:"HoursSpent"`
	MinutesSpent        flexInt `json:"MinutesSpent"`
	LogDate             string  `json:"LogDate"`
	CreatedOn           string  `json:"CreatedOn"`
}

func (r logRecord) toEntry(organization string) model.TimeLogEntry {
	org := r.OrganizationName
	if org == "" {
		org = organization
	}
	title := r.WorkItemTitle
	if title == "" && r.WorkItem != 0 {
		title = strconv.Itoa(int(r.WorkItem))
	}
	return model.TimeLogEntry{
		LogID:        model.LogID(r.LogID),
		Organization: org,
		Project:      r.ProjectName,
		WorkItem: model.WorkItemRef{
			ID:            int(r.WorkItem),
			Title:         title,
			Type:          r.WorkItemType,
			State:         r.WorkItemState,
			AssignedTo:    r.AssignedTo,
			IterationPath: r.IterationPath,
			AreaPath:      r.AreaPath,
			Tags:          r.Tags,
			URL:           r.WorkItemURL,
			Description:   r.WorkItemDescription,
			ProjectID:     r.ProjectID,
		},
		Description: r.Description,
		Hours:       int(r.HoursSpent),
		Minutes:     int(r.MinutesSpent),
		CreatedOn:   parseTimestamp(r.CreatedOn),
		LogDate:     parseTimestamp(r.LogDate),
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// flexInt accepts a JSON number, a numeric string or null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parsing %s as integer: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}
