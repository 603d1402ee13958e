package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/adotime/internal/ado"
	"github.com/christopherklint97/adotime/internal/model"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func names(orgs []model.Organization) []string {
	out := make([]string, len(orgs))
	for i, o := range orgs {
		out[i] = o.Name
	}
	return out
}

func TestReplaceOrganizationsKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	in := []model.Organization{
		{Name: "zeta", Credential: "z", DisplayName: "Ada"},
		{Name: "alpha", Credential: "a", DisplayName: "Ada", ExpiresAt: expires},
	}
	if err := db.ReplaceOrganizations(ctx, in); err != nil {
		t.Fatalf("ReplaceOrganizations: %v", err)
	}

	got, err := db.ListOrganizations(ctx)
	if err != nil {
		t.Fatalf("ListOrganizations: %v", err)
	}
	if len(got) != 2 || got[0].Name != "zeta" || got[1].Name != "alpha" {
		t.Fatalf("ListOrganizations = %v, want [zeta alpha]", names(got))
	}
	if !got[0].ExpiresAt.IsZero() {
		t.Errorf("zeta expiry = %v, want zero", got[0].ExpiresAt)
	}
	if !got[1].ExpiresAt.Equal(expires) {
		t.Errorf("alpha expiry = %v, want %v", got[1].ExpiresAt, expires)
	}

	if err := db.ReplaceOrganizations(ctx, in[1:]); err != nil {
		t.Fatalf("ReplaceOrganizations: %v", err)
	}
	got, _ = db.ListOrganizations(ctx)
	if len(got) != 1 || got[0].Name != "alpha" {
		t.Errorf("after replace = %v, want [alpha]", names(got))
	}
}

func TestUpsertOrganization(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertOrganization(ctx, "", model.Organization{Name: "Contoso", Credential: "pat"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := db.UpsertOrganization(ctx, "", model.Organization{Name: "fabrikam"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := db.UpsertOrganization(ctx, "", model.Organization{Name: "contoso"})
	if !errors.Is(err, ErrDuplicateOrganization) {
		t.Errorf("duplicate add err = %v, want ErrDuplicateOrganization", err)
	}

	if err := db.UpsertOrganization(ctx, "Contoso", model.Organization{Name: "contoso", Credential: "new"}); err != nil {
		t.Errorf("editing the same record with a case change: %v", err)
	}

	err = db.UpsertOrganization(ctx, "fabrikam", model.Organization{Name: "CONTOSO"})
	if !errors.Is(err, ErrDuplicateOrganization) {
		t.Errorf("rename onto existing err = %v, want ErrDuplicateOrganization", err)
	}

	if err := db.UpsertOrganization(ctx, "fabrikam", model.Organization{Name: "northwind"}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	err = db.UpsertOrganization(ctx, "missing", model.Organization{Name: "other"})
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("edit missing err = %v, want ErrOrganizationNotFound", err)
	}

	got, _ := db.ListOrganizations(ctx)
	want := []string{"contoso", "northwind"}
	if len(got) != len(want) {
		t.Fatalf("orgs = %v, want %v", names(got), want)
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("orgs[%d] = %q, want %q", i, got[i].Name, want[i])
		}
	}
	if got[0].Credential != "new" {
		t.Errorf("credential = %q, want new", got[0].Credential)
	}
}

func TestConcurrentUpsertsKeepEveryOrganization(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const n = 8
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			return db.UpsertOrganization(ctx, "", model.Organization{Name: fmt.Sprintf("org-%d", i)})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("UpsertOrganization: %v", err)
	}

	got, err := db.ListOrganizations(ctx)
	if err != nil {
		t.Fatalf("ListOrganizations: %v", err)
	}
	if len(got) != n {
		t.Errorf("orgs = %v, want %d records", names(got), n)
	}
}

func TestLookupAndRemoveOrganization(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_ = db.ReplaceOrganizations(ctx, []model.Organization{{Name: "contoso"}, {Name: "fabrikam"}})

	if _, err := db.LookupOrganization(ctx, "Contoso"); !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("lookup is case-sensitive, err = %v", err)
	}
	if o, err := db.LookupOrganization(ctx, "fabrikam"); err != nil || o.Name != "fabrikam" {
		t.Errorf("LookupOrganization = %v, %v", o, err)
	}

	if err := db.RemoveOrganization(ctx, "contoso"); err != nil {
		t.Fatalf("RemoveOrganization: %v", err)
	}
	if err := db.RemoveOrganization(ctx, "contoso"); !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("second remove err = %v, want ErrOrganizationNotFound", err)
	}
	got, _ := db.ListOrganizations(ctx)
	if len(got) != 1 || got[0].Name != "fabrikam" {
		t.Errorf("orgs = %v, want [fabrikam]", names(got))
	}
}

func TestCurrentWorkItem(t *testing.T) {
	db := setupTestDB(t)

	if _, ok, err := db.CurrentWorkItem(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	ref := ado.Ref{Organization: "contoso", Project: "Web", ID: 42}
	if err := db.SetCurrentWorkItem(ref); err != nil {
		t.Fatalf("SetCurrentWorkItem: %v", err)
	}
	got, ok, err := db.CurrentWorkItem()
	if err != nil || !ok || got != ref {
		t.Errorf("CurrentWorkItem = %v, %v, %v; want %v", got, ok, err, ref)
	}

	if err := db.ClearCurrentWorkItem(); err != nil {
		t.Fatalf("ClearCurrentWorkItem: %v", err)
	}
	if _, ok, _ := db.CurrentWorkItem(); ok {
		t.Error("current work item still set after clear")
	}
}
