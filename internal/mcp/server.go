// Package mcp exposes the time-log workflow as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/entry"
	"github.com/christopherklint97/adotime/internal/hierarchy"
	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/timelog"
)

// Service is the subset of the time-log service the tools call.
type Service interface {
	ListDay(ctx context.Context, day time.Time, f timelog.Filter) (timelog.Day, error)
	Add(ctx context.Context, d entry.Draft) (model.LogID, error)
	Edit(ctx context.Context, day time.Time, id model.LogID, hours, minutes int, description string) error
	Delete(ctx context.Context, organization string, id model.LogID) error
	Resolve(ctx context.Context, ref ado.Ref) (hierarchy.Result, error)
}

// CurrentItem remembers the last detected work item.
type CurrentItem interface {
	CurrentWorkItem() (ado.Ref, bool, error)
	SetCurrentWorkItem(ref ado.Ref) error
}

type handlers struct {
	svc     Service
	current CurrentItem
	now     func() time.Time
}

func NewServer(svc Service, current CurrentItem, version string) *server.MCPServer {
	h := &handlers{svc: svc, current: current, now: time.Now}

	s := server.NewMCPServer("adotime", version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("list_logs",
		mcp.WithDescription("List the time logs of one day across all configured organizations"),
		mcp.WithTitleAnnotation("List Logs"),
		mcp.WithString("date",
			mcp.Description("Day to list: YYYY-MM-DD or natural language like \"yesterday\" (default today)"),
		),
		mcp.WithString("organization",
			mcp.Description("Only logs of this organization"),
		),
		mcp.WithString("project",
			mcp.Description("Only logs of this project"),
		),
		mcp.WithNumber("work_item_id",
			mcp.Description("Only logs against this work item"),
		),
	), h.handleListLogs)

	s.AddTool(mcp.NewTool("add_log",
		mcp.WithDescription("Log time against an Azure DevOps work item. Defaults to the last detected work item"),
		mcp.WithTitleAnnotation("Add Log"),
		mcp.WithString("url",
			mcp.Description("Work item URL, e.g. https://dev.azure.com/org/project/_workitems/edit/123"),
		),
		mcp.WithString("organization",
			mcp.Description("Organization, when no url is given"),
		),
		mcp.WithString("project",
			mcp.Description("Project, when no url is given"),
		),
		mcp.WithNumber("work_item_id",
			mcp.Description("Work item ID, when no url is given"),
		),
		mcp.WithNumber("hours",
			mcp.Description("Hours (0-23)"),
		),
		mcp.WithNumber("minutes",
			mcp.Description("Minutes (0-59)"),
		),
		mcp.WithString("description",
			mcp.Description("What was done"),
			mcp.Required(),
		),
		mcp.WithString("date",
			mcp.Description("Day to log against (default today)"),
		),
	), h.handleAddLog)

	s.AddTool(mcp.NewTool("edit_log",
		mcp.WithDescription("Change the duration or description of a log created today or yesterday. Omitted fields keep their current values"),
		mcp.WithTitleAnnotation("Edit Log"),
		mcp.WithNumber("log_id",
			mcp.Description("Log ID as returned by list_logs"),
			mcp.Required(),
		),
		mcp.WithString("date",
			mcp.Description("Day the log belongs to (default today)"),
		),
		mcp.WithNumber("hours",
			mcp.Description("Hours (0-23)"),
		),
		mcp.WithNumber("minutes",
			mcp.Description("Minutes (0-59)"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
	), h.handleEditLog)

	s.AddTool(mcp.NewTool("delete_log",
		mcp.WithDescription("Delete a log"),
		mcp.WithTitleAnnotation("Delete Log"),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithNumber("log_id",
			mcp.Description("Log ID"),
			mcp.Required(),
		),
		mcp.WithString("organization",
			mcp.Description("Organization that owns the log"),
			mcp.Required(),
		),
	), h.handleDeleteLog)

	s.AddTool(mcp.NewTool("resolve_hierarchy",
		mcp.WithDescription("Show a work item with its closest User Story, Feature and Epic"),
		mcp.WithTitleAnnotation("Resolve Hierarchy"),
		mcp.WithString("url",
			mcp.Description("Work item URL"),
		),
		mcp.WithString("organization",
			mcp.Description("Organization, when no url is given"),
		),
		mcp.WithString("project",
			mcp.Description("Project, when no url is given"),
		),
		mcp.WithNumber("work_item_id",
			mcp.Description("Work item ID, when no url is given"),
		),
	), h.handleResolve)

	s.AddTool(mcp.NewTool("detect_work_item",
		mcp.WithDescription("Remember the work item of a URL as the current one for later logs"),
		mcp.WithTitleAnnotation("Detect Work Item"),
		mcp.WithString("url",
			mcp.Description("Work item URL"),
			mcp.Required(),
		),
	), h.handleDetect)

	return s
}

func textResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(b)},
		},
	}, nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: fmt.Sprintf("Error: %v", err)},
		},
	}, nil
}

// getInt reads a whole-number argument and reports whether it was given.
func getInt(req mcp.CallToolRequest, key string) (int, bool, error) {
	args := req.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, true, fmt.Errorf("%s must be a whole number, got %v", key, n)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("%s must be a number", key)
	}
}

func getString(req mcp.CallToolRequest, key string) string {
	args := req.GetArguments()
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// workItemRef resolves the work item a request is about: an explicit url,
// then explicit fields, then the remembered current item.
func (h *handlers) workItemRef(req mcp.CallToolRequest) (ado.Ref, error) {
	if raw := getString(req, "url"); raw != "" {
		return ado.ParseWorkItemURL(raw)
	}
	id, _, err := getInt(req, "work_item_id")
	if err != nil {
		return ado.Ref{}, err
	}
	ref := ado.Ref{
		Organization: getString(req, "organization"),
		Project:      getString(req, "project"),
		ID:           id,
	}
	if ref.Organization != "" || ref.Project != "" || ref.ID != 0 {
		if ref.Organization == "" || ref.Project == "" || ref.ID <= 0 {
			return ado.Ref{}, fmt.Errorf("organization, project and work_item_id are all required without a url")
		}
		return ref, nil
	}
	if h.current != nil {
		cur, ok, err := h.current.CurrentWorkItem()
		if err != nil {
			return ado.Ref{}, err
		}
		if ok {
			return cur, nil
		}
	}
	return ado.Ref{}, fmt.Errorf("no work item given and none detected yet")
}

type logSummary struct {
	LogID        string `json:"log_id"`
	Organization string `json:"organization"`
	Project      string `json:"project"`
	WorkItemID   int    `json:"work_item_id"`
	WorkItem     string `json:"work_item"`
	Duration     string `json:"duration"`
	Description  string `json:"description"`
	CreatedOn    string `json:"created_on,omitempty"`
	Editable     bool   `json:"editable"`
}

func (h *handlers) handleListLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := h.now()
	day, err := model.ParseDate(getString(req, "date"), now)
	if err != nil {
		return errResult(err)
	}
	workItemID, _, err := getInt(req, "work_item_id")
	if err != nil {
		return errResult(err)
	}
	res, err := h.svc.ListDay(ctx, day, timelog.Filter{
		Organization: getString(req, "organization"),
		Project:      getString(req, "project"),
		WorkItemID:   workItemID,
	})
	if err != nil {
		return errResult(err)
	}

	logs := make([]logSummary, len(res.Entries))
	for i, e := range res.Entries {
		s := logSummary{
			LogID:        e.LogID.String(),
			Organization: e.Organization,
			Project:      e.Project,
			WorkItemID:   e.WorkItem.ID,
			WorkItem:     e.WorkItem.Title,
			Duration:     model.FormatDuration(e.Hours, e.Minutes),
			Description:  e.Description,
			Editable:     e.Editable(now),
		}
		if !e.CreatedOn.IsZero() {
			s.CreatedOn = model.FormatDay(e.CreatedOn)
		}
		logs[i] = s
	}
	return textResult(map[string]any{
		"date":  model.FormatDay(res.Date),
		"total": model.FormatDuration(0, res.TotalMinutes),
		"logs":  logs,
	})
}

func (h *handlers) handleAddLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := h.workItemRef(req)
	if err != nil {
		return errResult(err)
	}
	day, err := model.ParseDate(getString(req, "date"), h.now())
	if err != nil {
		return errResult(err)
	}
	description := getString(req, "description")
	if description == "" {
		return errResult(fmt.Errorf("description is required"))
	}

	hours, _, err := getInt(req, "hours")
	if err != nil {
		return errResult(err)
	}
	minutes, _, err := getInt(req, "minutes")
	if err != nil {
		return errResult(err)
	}
	id, err := h.svc.Add(ctx, entry.Draft{
		Organization: ref.Organization,
		Project:      ref.Project,
		WorkItemID:   ref.ID,
		Description:  description,
		Hours:        hours,
		Minutes:      minutes,
		LogDate:      day,
	})
	if err != nil {
		return errResult(err)
	}
	return textResult(map[string]any{
		"log_id":   id.String(),
		"date":     model.FormatDay(day),
		"duration": model.FormatDuration(hours, minutes),
	})
}

func (h *handlers) handleEditLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := logID(req)
	if err != nil {
		return errResult(err)
	}
	day, err := model.ParseDate(getString(req, "date"), h.now())
	if err != nil {
		return errResult(err)
	}

	// Arguments left out keep the log's current values.
	logs, err := h.svc.ListDay(ctx, day, timelog.Filter{})
	if err != nil {
		return errResult(err)
	}
	var current *model.TimeLogEntry
	for i := range logs.Entries {
		if logs.Entries[i].LogID == id {
			current = &logs.Entries[i]
			break
		}
	}
	if current == nil {
		return errResult(fmt.Errorf("%w: log %s on %s", timelog.ErrLogNotFound, id, model.FormatDay(day)))
	}

	hours, minutes, description := current.Hours, current.Minutes, current.Description
	if v, ok, err := getInt(req, "hours"); err != nil {
		return errResult(err)
	} else if ok {
		hours = v
	}
	if v, ok, err := getInt(req, "minutes"); err != nil {
		return errResult(err)
	} else if ok {
		minutes = v
	}
	if v := getString(req, "description"); v != "" {
		description = v
	}

	if err := h.svc.Edit(ctx, day, id, hours, minutes, description); err != nil {
		return errResult(err)
	}
	return textResult(map[string]any{
		"log_id":      id.String(),
		"duration":    model.FormatDuration(hours, minutes),
		"description": description,
	})
}

// logID reads the required log_id argument.
func logID(req mcp.CallToolRequest) (model.LogID, error) {
	n, _, err := getInt(req, "log_id")
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("log_id is required")
	}
	return model.LogID(n), nil
}

func (h *handlers) handleDeleteLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := logID(req)
	if err != nil {
		return errResult(err)
	}
	if err := h.svc.Delete(ctx, getString(req, "organization"), id); err != nil {
		return errResult(err)
	}
	return textResult(map[string]any{"deleted": id.String()})
}

func (h *handlers) handleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := h.workItemRef(req)
	if err != nil {
		return errResult(err)
	}
	res, err := h.svc.Resolve(ctx, ref)
	if err != nil {
		return errResult(err)
	}
	return textResult(res)
}

func (h *handlers) handleDetect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := ado.ParseWorkItemURL(getString(req, "url"))
	if err != nil {
		return errResult(err)
	}
	if h.current == nil {
		return errResult(fmt.Errorf("no store to remember the work item"))
	}
	if err := h.current.SetCurrentWorkItem(ref); err != nil {
		return errResult(err)
	}
	return textResult(ref)
}
