// Package timelog creates, edits and lists time logs. It checks settings,
// enforces the daily quota and enriches new logs before they reach the
// timesheet backend.
package timelog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/entry"
	"github.com/christopherklint97/adotime/internal/hierarchy"
	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/quota"
	"github.com/christopherklint97/adotime/internal/timesheet"
)

// Settings is the organization store.
type Settings interface {
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	UpsertOrganization(ctx context.Context, editing string, org model.Organization) error
	RemoveOrganization(ctx context.Context, name string) error
}

// Backend is the timesheet backend as seen through one organization's credential.
type Backend interface {
	GetLogs(ctx context.Context, q timesheet.LogQuery) ([]model.TimeLogEntry, error)
	Create(ctx context.Context, p timesheet.CreatePayload) (model.LogID, error)
	Update(ctx context.Context, p timesheet.UpdatePayload) error
	Delete(ctx context.Context, id model.LogID, organization string) error
}

// Directory is the work item directory as seen through one organization's credential.
type Directory interface {
	hierarchy.Fetcher
	GetProjects(ctx context.Context, organization string) ([]ado.Project, error)
	SearchAssigned(ctx context.Context, organization, projectID string) (ado.Search, error)
}

type (
	BackendFactory   func(org model.Organization) (Backend, error)
	DirectoryFactory func(org model.Organization) (Directory, error)
)

type Options struct {
	Now    func() time.Time
	Logger *slog.Logger
}

type Service struct {
	settings  Settings
	backend   BackendFactory
	directory DirectoryFactory
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(settings Settings, backend BackendFactory, directory DirectoryFactory, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		settings:  settings,
		backend:   backend,
		directory: directory,
		now:       opts.Now,
		logger:    opts.Logger,
	}
}

// Filter narrows ListDay. Zero fields match everything.
type Filter struct {
	Organization string // case-insensitive
	Project      string
	WorkItemID   int
}

func (f Filter) match(e model.TimeLogEntry) bool {
	if f.Organization != "" && !strings.EqualFold(f.Organization, e.Organization) {
		return false
	}
	if f.Project != "" && f.Project != e.Project {
		return false
	}
	if f.WorkItemID != 0 && f.WorkItemID != e.WorkItem.ID {
		return false
	}
	return true
}

// Day is the result of ListDay.
type Day struct {
	Date         time.Time
	Entries      []model.TimeLogEntry
	TotalMinutes int
}

// ListDay returns the logs of day across every complete organization.
func (s *Service) ListDay(ctx context.Context, day time.Time, f Filter) (Day, error) {
	all, err := s.dayLogs(ctx, day)
	if err != nil {
		return Day{}, err
	}
	out := Day{Date: model.Day(day)}
	for _, e := range all {
		if f.match(e) {
			out.Entries = append(out.Entries, e)
		}
	}
	out.TotalMinutes = model.SumMinutes(out.Entries)
	return out, nil
}

// dayLogs fetches the logs of day from every complete organization. Any
// failed fetch fails the whole call so quota checks never run on partial data.
func (s *Service) dayLogs(ctx context.Context, day time.Time) ([]model.TimeLogEntry, error) {
	orgs, err := s.settings.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading organizations: %w", err)
	}

	var all []model.TimeLogEntry
	for _, org := range orgs {
		if !org.Complete() {
			s.logger.Debug("skipping incomplete organization", "organization", org.Name, "missing", org.Missing())
			continue
		}
		b, err := s.backend(org)
		if err != nil {
			return nil, fmt.Errorf("connecting to timesheet for %s: %w", org.Name, err)
		}
		logs, err := b.GetLogs(ctx, timesheet.LogQuery{
			Date:         day,
			AssignedTo:   org.DisplayName,
			Organization: org.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching logs for %s: %w", org.Name, err)
		}
		all = append(all, logs...)
	}
	return all, nil
}

// organization returns the named record after checking the required
// settings. Without requireName only the credential is needed.
func (s *Service) organization(ctx context.Context, name string, requireName bool) (model.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return model.Organization{}, &ConfigError{Missing: []string{"organization"}}
	}
	orgs, err := s.settings.ListOrganizations(ctx)
	if err != nil {
		return model.Organization{}, fmt.Errorf("loading organizations: %w", err)
	}
	org, ok := model.FindOrganization(orgs, name)
	if !ok {
		org = model.Organization{Name: name}
	}

	var missing []string
	for _, m := range org.Missing() {
		if m == "display name" && !requireName {
			continue
		}
		missing = append(missing, m)
	}
	if len(missing) > 0 {
		return model.Organization{}, &ConfigError{Organization: name, Missing: missing}
	}
	return org, nil
}

// Add validates and submits a new log, returning the backend's identifier.
func (s *Service) Add(ctx context.Context, d entry.Draft) (model.LogID, error) {
	org, err := s.organization(ctx, d.Organization, true)
	if err != nil {
		return 0, err
	}
	if err := CheckDuration(d.Hours, d.Minutes); err != nil {
		return 0, err
	}
	if d.WorkItemID <= 0 {
		return 0, &FieldError{Field: "work item", Message: "must be a positive id"}
	}
	if d.LogDate.IsZero() {
		d.LogDate = model.Day(s.now())
	}

	existing, err := s.dayLogs(ctx, d.LogDate)
	if err != nil {
		return 0, fmt.Errorf("checking daily quota: %w", err)
	}
	if err := quota.Validate(quota.Duration{Hours: d.Hours, Minutes: d.Minutes}, existing, 0); err != nil {
		return 0, err
	}

	payload, res := s.assembler(org).CreatePayload(ctx, d, org)

	if assignee := res.Details.AssignedTo; assignee != "" && !strings.EqualFold(assignee, org.DisplayName) {
		return 0, fmt.Errorf("%w: %d is assigned to %s", ErrNotAssigned, d.WorkItemID, assignee)
	}

	b, err := s.backend(org)
	if err != nil {
		return 0, fmt.Errorf("connecting to timesheet for %s: %w", org.Name, err)
	}
	id, err := b.Create(ctx, payload)
	if err != nil {
		return 0, err
	}
	s.logger.Info("time logged", "organization", org.Name, "work_item", d.WorkItemID, "duration", model.FormatDuration(d.Hours, d.Minutes), "log_id", id)
	return id, nil
}

// assembler wires the resolver to the organization's directory. Without a
// directory the payload is assembled from the draft alone.
func (s *Service) assembler(org model.Organization) *entry.Assembler {
	var resolver entry.Resolver
	if dir, err := s.directoryFor(org); err != nil {
		s.logger.Warn("work item enrichment unavailable", "organization", org.Name, "error", err)
	} else {
		resolver = hierarchy.NewResolver(dir, s.logger)
	}
	return entry.NewAssembler(resolver, s.now, s.logger)
}

func (s *Service) directoryFor(org model.Organization) (Directory, error) {
	if s.directory == nil {
		return nil, errors.New("no work item directory configured")
	}
	return s.directory(org)
}

// Edit changes the duration and description of a log on day.
func (s *Service) Edit(ctx context.Context, day time.Time, id model.LogID, hours, minutes int, description string) error {
	if err := CheckDuration(hours, minutes); err != nil {
		return err
	}

	existing, err := s.dayLogs(ctx, day)
	if err != nil {
		return fmt.Errorf("checking daily quota: %w", err)
	}

	var target *model.TimeLogEntry
	for i := range existing {
		if existing[i].LogID == id {
			target = &existing[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s on %s", ErrLogNotFound, id, model.FormatDay(day))
	}
	if !target.Editable(s.now()) {
		return fmt.Errorf("%w: log %s was created %s", ErrNotEditable, id, model.FormatDay(target.CreatedOn))
	}

	if err := quota.Validate(quota.Duration{Hours: hours, Minutes: minutes}, existing, id); err != nil {
		return err
	}

	org, err := s.organization(ctx, target.Organization, false)
	if err != nil {
		return err
	}
	b, err := s.backend(org)
	if err != nil {
		return fmt.Errorf("connecting to timesheet for %s: %w", org.Name, err)
	}
	payload := s.assembler(org).UpdatePayload(id, hours, minutes, description)
	if err := b.Update(ctx, payload); err != nil {
		return err
	}
	s.logger.Info("time log updated", "organization", org.Name, "log_id", id, "duration", model.FormatDuration(hours, minutes))
	return nil
}

// Delete removes a log owned by organization.
func (s *Service) Delete(ctx context.Context, organization string, id model.LogID) error {
	org, err := s.organization(ctx, organization, false)
	if err != nil {
		return err
	}
	b, err := s.backend(org)
	if err != nil {
		return fmt.Errorf("connecting to timesheet for %s: %w", org.Name, err)
	}
	if err := b.Delete(ctx, id, org.Name); err != nil {
		return err
	}
	s.logger.Info("time log deleted", "organization", org.Name, "log_id", id)
	return nil
}

func (s *Service) Organizations(ctx context.Context) ([]model.Organization, error) {
	return s.settings.ListOrganizations(ctx)
}

func (s *Service) SaveOrganization(ctx context.Context, editing string, org model.Organization) error {
	return s.settings.UpsertOrganization(ctx, editing, org)
}

func (s *Service) RemoveOrganization(ctx context.Context, name string) error {
	return s.settings.RemoveOrganization(ctx, name)
}

// Projects lists the projects of an organization.
func (s *Service) Projects(ctx context.Context, organization string) ([]ado.Project, error) {
	org, err := s.organization(ctx, organization, false)
	if err != nil {
		return nil, err
	}
	dir, err := s.directoryFor(org)
	if err != nil {
		return nil, err
	}
	return dir.GetProjects(ctx, org.Name)
}

// SearchWorkItems returns the caller's assigned items and open backlog in a project.
func (s *Service) SearchWorkItems(ctx context.Context, organization, projectID string) (ado.Search, error) {
	org, err := s.organization(ctx, organization, false)
	if err != nil {
		return ado.Search{}, err
	}
	dir, err := s.directoryFor(org)
	if err != nil {
		return ado.Search{}, err
	}
	return dir.SearchAssigned(ctx, org.Name, projectID)
}

// Resolve returns the details and ancestors of a work item.
func (s *Service) Resolve(ctx context.Context, ref ado.Ref) (hierarchy.Result, error) {
	org, err := s.organization(ctx, ref.Organization, false)
	if err != nil {
		return hierarchy.Result{}, err
	}
	dir, err := s.directoryFor(org)
	if err != nil {
		return hierarchy.Result{}, err
	}
	return hierarchy.NewResolver(dir, s.logger).Resolve(ctx, ref.ID, ref.Organization, ref.Project), nil
}
