package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/entry"
	"github.com/christopherklint97/adotime/internal/hierarchy"
	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/timelog"
)

type fakeService struct {
	day     timelog.Day
	added   []entry.Draft
	addErr  error
	edited  []editCall
	deleted []model.LogID
}

type editCall struct {
	id          model.LogID
	hours       int
	minutes     int
	description string
}

func (f *fakeService) ListDay(ctx context.Context, day time.Time, flt timelog.Filter) (timelog.Day, error) {
	return f.day, nil
}

func (f *fakeService) Add(ctx context.Context, d entry.Draft) (model.LogID, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.added = append(f.added, d)
	return 55, nil
}

func (f *fakeService) Edit(ctx context.Context, day time.Time, id model.LogID, hours, minutes int, description string) error {
	f.edited = append(f.edited, editCall{id, hours, minutes, description})
	return nil
}

func (f *fakeService) Delete(ctx context.Context, organization string, id model.LogID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) Resolve(ctx context.Context, ref ado.Ref) (hierarchy.Result, error) {
	return hierarchy.Result{Details: hierarchy.Details{ID: ref.ID, Title: "Fix login"}}, nil
}

type memCurrent struct {
	ref ado.Ref
	ok  bool
}

func (m *memCurrent) CurrentWorkItem() (ado.Ref, bool, error) { return m.ref, m.ok, nil }

func (m *memCurrent) SetCurrentWorkItem(ref ado.Ref) error {
	m.ref, m.ok = ref, true
	return nil
}

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)

func newHandlers(svc *fakeService, cur *memCurrent) *handlers {
	return &handlers{svc: svc, current: cur, now: func() time.Time { return testNow }}
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content items = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestAddLogFromURL(t *testing.T) {
	svc := &fakeService{}
	h := newHandlers(svc, &memCurrent{})

	res, err := h.handleAddLog(context.Background(), request(map[string]any{
		"url":         "https://dev.azure.com/contoso/Web/_workitems/edit/42",
		"hours":       float64(1),
		"minutes":     float64(30),
		"description": "pairing",
		"date":        "2026-03-02",
	}))
	if err != nil || res.IsError {
		t.Fatalf("handleAddLog: %v %s", err, resultText(t, res))
	}
	if len(svc.added) != 1 {
		t.Fatalf("added = %d, want 1", len(svc.added))
	}
	d := svc.added[0]
	if d.Organization != "contoso" || d.Project != "Web" || d.WorkItemID != 42 || d.Duration() != 90 {
		t.Errorf("draft = %+v", d)
	}
	if model.FormatDay(d.LogDate) != "2026-03-02" {
		t.Errorf("LogDate = %v", d.LogDate)
	}
	if !strings.Contains(resultText(t, res), `"log_id": "55"`) {
		t.Errorf("result = %s", resultText(t, res))
	}
}

func TestAddLogUsesCurrentWorkItem(t *testing.T) {
	svc := &fakeService{}
	cur := &memCurrent{ref: ado.Ref{Organization: "contoso", Project: "Web", ID: 7}, ok: true}
	h := newHandlers(svc, cur)

	res, _ := h.handleAddLog(context.Background(), request(map[string]any{
		"hours":       float64(2),
		"description": "review",
	}))
	if res.IsError {
		t.Fatalf("handleAddLog: %s", resultText(t, res))
	}
	if svc.added[0].WorkItemID != 7 {
		t.Errorf("WorkItemID = %d, want 7", svc.added[0].WorkItemID)
	}
	if !svc.added[0].LogDate.Equal(model.Day(testNow)) {
		t.Errorf("LogDate = %v, want today", svc.added[0].LogDate)
	}
}

func TestAddLogErrors(t *testing.T) {
	tests := []struct {
		name string
		svc  *fakeService
		cur  *memCurrent
		args map[string]any
		want string
	}{
		{"no work item", &fakeService{}, &memCurrent{}, map[string]any{"description": "x", "hours": float64(1)}, "none detected"},
		{"partial fields", &fakeService{}, &memCurrent{}, map[string]any{"organization": "contoso", "description": "x"}, "all required"},
		{"missing description", &fakeService{}, &memCurrent{ok: true, ref: ado.Ref{Organization: "o", Project: "p", ID: 1}}, map[string]any{}, "description is required"},
		{"service rejection", &fakeService{addErr: errors.New("daily limit")}, &memCurrent{ok: true, ref: ado.Ref{Organization: "o", Project: "p", ID: 1}}, map[string]any{"description": "x"}, "daily limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newHandlers(tt.svc, tt.cur).handleAddLog(context.Background(), request(tt.args))
			if err != nil {
				t.Fatalf("handler returned error %v, want error result", err)
			}
			if !res.IsError {
				t.Fatal("IsError = false, want true")
			}
			if text := resultText(t, res); !strings.Contains(text, tt.want) {
				t.Errorf("text = %q, want it to contain %q", text, tt.want)
			}
		})
	}
}

func TestListLogs(t *testing.T) {
	svc := &fakeService{day: timelog.Day{
		Date: model.Day(testNow),
		Entries: []model.TimeLogEntry{{
			LogID: 3, Organization: "contoso", Hours: 1, Minutes: 15,
			WorkItem: model.WorkItemRef{ID: 42, Title: "Fix login"}, CreatedOn: testNow,
		}},
		TotalMinutes: 75,
	}}
	res, _ := newHandlers(svc, &memCurrent{}).handleListLogs(context.Background(), request(map[string]any{}))
	if res.IsError {
		t.Fatalf("handleListLogs: %s", resultText(t, res))
	}

	var out struct {
		Date  string       `json:"date"`
		Total string       `json:"total"`
		Logs  []logSummary `json:"logs"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if out.Date != "2026-03-04" || out.Total != "1h 15m" || len(out.Logs) != 1 {
		t.Fatalf("out = %+v", out)
	}
	if !out.Logs[0].Editable || out.Logs[0].LogID != "3" {
		t.Errorf("log = %+v", out.Logs[0])
	}
}

func TestDetectAndDelete(t *testing.T) {
	svc := &fakeService{}
	cur := &memCurrent{}
	h := newHandlers(svc, cur)

	res, _ := h.handleDetect(context.Background(), request(map[string]any{
		"url": "https://dev.azure.com/contoso/Web/_workitems/edit/9",
	}))
	if res.IsError || !cur.ok || cur.ref.ID != 9 {
		t.Fatalf("detect: %s, current = %+v", resultText(t, res), cur.ref)
	}

	res, _ = h.handleDeleteLog(context.Background(), request(map[string]any{"log_id": float64(4), "organization": "contoso"}))
	if res.IsError || len(svc.deleted) != 1 || svc.deleted[0] != 4 {
		t.Errorf("delete: %s, deleted = %v", resultText(t, res), svc.deleted)
	}

	res, _ = h.handleEditLog(context.Background(), request(map[string]any{"description": "x"}))
	if !res.IsError {
		t.Error("edit without log_id should fail")
	}
}

func TestEditLogKeepsOmittedFields(t *testing.T) {
	day := timelog.Day{
		Date: model.Day(testNow),
		Entries: []model.TimeLogEntry{
			{LogID: 6, Hours: 1, Description: "other"},
			{LogID: 7, Hours: 2, Minutes: 30, Description: "standup"},
		},
	}
	tests := []struct {
		name string
		args map[string]any
		want editCall
	}{
		{"minutes only", map[string]any{"minutes": float64(45)}, editCall{7, 2, 45, "standup"}},
		{"description only", map[string]any{"description": "retro"}, editCall{7, 2, 30, "retro"}},
		{"hours set to zero", map[string]any{"hours": float64(0), "minutes": float64(15)}, editCall{7, 0, 15, "standup"}},
		{"everything", map[string]any{"hours": float64(3), "minutes": float64(5), "description": "pairing"}, editCall{7, 3, 5, "pairing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{day: day}
			args := map[string]any{"log_id": float64(7)}
			for k, v := range tt.args {
				args[k] = v
			}
			res, err := newHandlers(svc, &memCurrent{}).handleEditLog(context.Background(), request(args))
			if err != nil || res.IsError {
				t.Fatalf("handleEditLog: %v %s", err, resultText(t, res))
			}
			if len(svc.edited) != 1 {
				t.Fatalf("edited = %d calls, want 1", len(svc.edited))
			}
			if svc.edited[0] != tt.want {
				t.Errorf("Edit called with %+v, want %+v", svc.edited[0], tt.want)
			}
		})
	}
}

func TestEditLogUnknownID(t *testing.T) {
	svc := &fakeService{day: timelog.Day{Entries: []model.TimeLogEntry{{LogID: 6, Hours: 1}}}}
	res, _ := newHandlers(svc, &memCurrent{}).handleEditLog(context.Background(), request(map[string]any{
		"log_id":  float64(7),
		"minutes": float64(45),
	}))
	if !res.IsError || !strings.Contains(resultText(t, res), "log not found") {
		t.Errorf("result = %s, want log not found", resultText(t, res))
	}
	if len(svc.edited) != 0 {
		t.Errorf("edited = %+v, want none", svc.edited)
	}
}

func TestFractionalNumbersRejected(t *testing.T) {
	cur := &memCurrent{ok: true, ref: ado.Ref{Organization: "o", Project: "p", ID: 1}}
	tests := []struct {
		name string
		call func(h *handlers) (*mcp.CallToolResult, error)
		want string
	}{
		{"add hours", func(h *handlers) (*mcp.CallToolResult, error) {
			return h.handleAddLog(context.Background(), request(map[string]any{"hours": 1.5, "description": "x"}))
		}, "hours must be a whole number"},
		{"edit minutes", func(h *handlers) (*mcp.CallToolResult, error) {
			return h.handleEditLog(context.Background(), request(map[string]any{"log_id": float64(7), "minutes": 12.5}))
		}, "minutes must be a whole number"},
		{"delete log id", func(h *handlers) (*mcp.CallToolResult, error) {
			return h.handleDeleteLog(context.Background(), request(map[string]any{"log_id": 7.2, "organization": "o"}))
		}, "log_id must be a whole number"},
		{"non-number", func(h *handlers) (*mcp.CallToolResult, error) {
			return h.handleAddLog(context.Background(), request(map[string]any{"hours": "two", "description": "x"}))
		}, "hours must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{day: timelog.Day{Entries: []model.TimeLogEntry{{LogID: 7, Hours: 1}}}}
			res, err := tt.call(newHandlers(svc, cur))
			if err != nil {
				t.Fatalf("handler returned error %v, want error result", err)
			}
			if !res.IsError || !strings.Contains(resultText(t, res), tt.want) {
				t.Errorf("result = %s, want %q", resultText(t, res), tt.want)
			}
			if len(svc.added)+len(svc.edited)+len(svc.deleted) != 0 {
				t.Error("service was called despite the invalid argument")
			}
		})
	}
}
