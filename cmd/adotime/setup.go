package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/auth"
	"github.com/christopherklint97/adotime/internal/config"
	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/store"
	"github.com/christopherklint97/adotime/internal/timelog"
	"github.com/christopherklint97/adotime/internal/timesheet"
)

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	db     *store.DB
	svc    *timelog.Service
	logger *slog.Logger
}

func (a *app) Close() error {
	return a.db.Close()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	backend := func(org model.Organization) (timelog.Backend, error) {
		return timesheet.NewClient(cfg.Timesheet.BaseURL, auth.BasicPAT(org.Credential), logger), nil
	}
	directory := func(org model.Organization) (timelog.Directory, error) {
		authorizer, err := auth.ForScheme(cfg.ADO.AuthScheme, org.Credential)
		if err != nil {
			return nil, err
		}
		return ado.NewClient(cfg.ADO.BaseURL, authorizer, logger), nil
	}

	svc := timelog.NewService(db, backend, directory, timelog.Options{Logger: logger})
	return &app{cfg: cfg, db: db, svc: svc, logger: logger}, nil
}

// commandContext bounds a single CLI invocation.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 2*time.Minute)
}

// defaultOrganization returns name, or the only configured organization
// when name is empty.
func (a *app) defaultOrganization(ctx context.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	orgs, err := a.db.ListOrganizations(ctx)
	if err != nil {
		return "", err
	}
	switch len(orgs) {
	case 0:
		return "", errors.New("no organizations configured, run 'adotime orgs add' first")
	case 1:
		return orgs[0].Name, nil
	}
	if cur, ok, _ := a.db.CurrentWorkItem(); ok {
		return cur.Organization, nil
	}
	return "", errors.New("several organizations configured, pass --org")
}

// workItemRef resolves the work item a command refers to: a URL argument,
// a numeric id with --org and --project, or the last detected work item.
func (a *app) workItemRef(args []string, org, project string) (ado.Ref, error) {
	if len(args) > 0 {
		if ref, err := ado.ParseWorkItemURL(args[0]); err == nil {
			return ref, nil
		}
		id, err := ado.ParseWorkItemID(args[0])
		if err != nil {
			return ado.Ref{}, fmt.Errorf("%q is neither a work item URL nor an id", args[0])
		}
		ref := ado.Ref{Organization: org, Project: project, ID: id}
		if cur, ok, _ := a.db.CurrentWorkItem(); ok {
			if ref.Organization == "" {
				ref.Organization = cur.Organization
			}
			if ref.Project == "" {
				ref.Project = cur.Project
			}
		}
		if ref.Organization == "" || ref.Project == "" {
			return ado.Ref{}, errors.New("pass --org and --project with a bare work item id")
		}
		return ref, nil
	}

	cur, ok, err := a.db.CurrentWorkItem()
	if err != nil {
		return ado.Ref{}, err
	}
	if !ok {
		return ado.Ref{}, errors.New("no work item given and none detected, run 'adotime detect <url>' or pass one")
	}
	return cur, nil
}
