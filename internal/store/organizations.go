package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/model"
)

// ErrDuplicateOrganization is returned when an organization name is already
// configured, ignoring case.
var ErrDuplicateOrganization = errors.New("organization already exists")

// ErrOrganizationNotFound is returned when no record has the given name.
var ErrOrganizationNotFound = errors.New("organization not found")

const currentWorkItemKey = "current_work_item"

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ListOrganizations returns the configured organizations in stored order.
func (db *DB) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	return listOrganizations(ctx, db)
}

func listOrganizations(ctx context.Context, q querier) ([]model.Organization, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name, credential, display_name, expires_at
		 FROM organizations
		 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying organizations: %w", err)
	}
	defer rows.Close()

	var orgs []model.Organization
	for rows.Next() {
		var o model.Organization
		var expires sql.NullString
		if err := rows.Scan(&o.Name, &o.Credential, &o.DisplayName, &expires); err != nil {
			return nil, fmt.Errorf("scanning organization: %w", err)
		}
		if expires.Valid && expires.String != "" {
			o.ExpiresAt, _ = time.Parse(time.RFC3339, expires.String)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// LookupOrganization returns the record whose name matches exactly.
func (db *DB) LookupOrganization(ctx context.Context, name string) (model.Organization, error) {
	orgs, err := db.ListOrganizations(ctx)
	if err != nil {
		return model.Organization{}, err
	}
	o, ok := model.FindOrganization(orgs, name)
	if !ok {
		return model.Organization{}, fmt.Errorf("%w: %s", ErrOrganizationNotFound, name)
	}
	return o, nil
}

// ReplaceOrganizations swaps the full list in one transaction.
func (db *DB) ReplaceOrganizations(ctx context.Context, orgs []model.Organization) error {
	return db.updateOrganizations(ctx, func([]model.Organization) ([]model.Organization, error) {
		return orgs, nil
	})
}

// updateOrganizations reads the list, applies fn and writes the result back
// inside one write transaction, so concurrent edits serialize.
func (db *DB) updateOrganizations(ctx context.Context, fn func([]model.Organization) ([]model.Organization, error)) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Take the write lock before reading so no other writer commits in between.
	if _, err := tx.ExecContext(ctx, "UPDATE organizations SET position = position WHERE 0 = 1"); err != nil {
		return fmt.Errorf("locking organizations: %w", err)
	}

	current, err := listOrganizations(ctx, tx)
	if err != nil {
		return err
	}
	orgs, err := fn(current)
	if err != nil {
		return err
	}
	if err := writeOrganizations(ctx, tx, orgs); err != nil {
		return err
	}
	return tx.Commit()
}

func writeOrganizations(ctx context.Context, ex execer, orgs []model.Organization) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM organizations"); err != nil {
		return fmt.Errorf("clearing organizations: %w", err)
	}
	for i, o := range orgs {
		var expires any
		if !o.ExpiresAt.IsZero() {
			expires = o.ExpiresAt.UTC().Format(time.RFC3339)
		}
		_, err := ex.ExecContext(ctx,
			`INSERT INTO organizations (position, name, credential, display_name, expires_at)
			 VALUES (?, ?, ?, ?, ?)`,
			i, o.Name, o.Credential, o.DisplayName, expires,
		)
		if err != nil {
			return fmt.Errorf("inserting organization %s: %w", o.Name, err)
		}
	}
	return nil
}

// UpsertOrganization adds org, or replaces the record named editing when it
// is non-empty. Editing may rename. A name that collides case-insensitively
// with any other record is rejected.
func (db *DB) UpsertOrganization(ctx context.Context, editing string, org model.Organization) error {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return fmt.Errorf("organization name is required")
	}

	return db.updateOrganizations(ctx, func(orgs []model.Organization) ([]model.Organization, error) {
		idx := -1
		for i, o := range orgs {
			if editing != "" && o.Name == editing {
				idx = i
				continue
			}
			if strings.EqualFold(o.Name, org.Name) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateOrganization, o.Name)
			}
		}

		switch {
		case idx >= 0:
			orgs[idx] = org
		case editing != "":
			return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, editing)
		default:
			orgs = append(orgs, org)
		}
		return orgs, nil
	})
}

// RemoveOrganization deletes the record with the exact name.
func (db *DB) RemoveOrganization(ctx context.Context, name string) error {
	return db.updateOrganizations(ctx, func(orgs []model.Organization) ([]model.Organization, error) {
		kept := orgs[:0]
		for _, o := range orgs {
			if o.Name != name {
				kept = append(kept, o)
			}
		}
		if len(kept) == len(orgs) {
			return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, name)
		}
		return kept, nil
	})
}

// CurrentWorkItem returns the last detected work item, or false when none
// has been recorded.
func (db *DB) CurrentWorkItem() (ado.Ref, bool, error) {
	raw, err := db.GetState(currentWorkItemKey)
	if err != nil {
		return ado.Ref{}, false, fmt.Errorf("reading current work item: %w", err)
	}
	if raw == "" {
		return ado.Ref{}, false, nil
	}
	var ref ado.Ref
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return ado.Ref{}, false, fmt.Errorf("parsing current work item: %w", err)
	}
	return ref, true, nil
}

func (db *DB) SetCurrentWorkItem(ref ado.Ref) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encoding current work item: %w", err)
	}
	return db.SetState(currentWorkItemKey, string(data))
}

func (db *DB) ClearCurrentWorkItem() error {
	return db.DeleteState(currentWorkItemKey)
}
