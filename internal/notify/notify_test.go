package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/adotime/internal/model"
)

type recorder struct {
	titles   []string
	messages []string
}

func (r *recorder) Notify(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

var now = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func TestWarnExpiring(t *testing.T) {
	orgs := []model.Organization{
		{Name: "contoso", ExpiresAt: now.Add(3 * 24 * time.Hour)},
		{Name: "fabrikam", ExpiresAt: now.Add(30 * 24 * time.Hour)},
		{Name: "northwind", ExpiresAt: now.Add(-time.Hour)},
		{Name: "forever"},
	}
	r := &recorder{}

	n, err := WarnExpiring(r, orgs, now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("WarnExpiring: %v", err)
	}
	if n != 2 {
		t.Errorf("reported = %d, want 2", n)
	}
	if len(r.titles) != 1 || !strings.Contains(r.titles[0], "2 credentials") {
		t.Errorf("titles = %v", r.titles)
	}
	msg := r.messages[0]
	if !strings.Contains(msg, "contoso: expires") || !strings.Contains(msg, "northwind: expired") {
		t.Errorf("message = %q", msg)
	}
	if strings.Contains(msg, "fabrikam") || strings.Contains(msg, "forever") {
		t.Errorf("message includes organizations outside the window: %q", msg)
	}
}

func TestWarnExpiringNothingToSay(t *testing.T) {
	r := &recorder{}
	n, err := WarnExpiring(r, []model.Organization{{Name: "forever"}}, now, time.Hour)
	if err != nil || n != 0 || len(r.titles) != 0 {
		t.Errorf("WarnExpiring = %d, %v; notifications = %d", n, err, len(r.titles))
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(model.Organization{}, now); got != "no expiry set" {
		t.Errorf("Describe(no expiry) = %q", got)
	}
	got := Describe(model.Organization{ExpiresAt: now.Add(-48 * time.Hour)}, now)
	if !strings.HasPrefix(got, "expired ") || !strings.HasSuffix(got, " ago") {
		t.Errorf("Describe(past) = %q", got)
	}
}
