// Package notify warns about organization credentials that are about to expire.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"

	"github.com/christopherklint97/adotime/internal/model"
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(title, message string) error
}

// Desktop sends native desktop notifications.
type Desktop struct{}

func (Desktop) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Expiring returns the organizations whose credential expires within window of now.
func Expiring(orgs []model.Organization, now time.Time, window time.Duration) []model.Organization {
	var out []model.Organization
	for _, o := range orgs {
		if o.ExpiresWithin(now, window) {
			out = append(out, o)
		}
	}
	return out
}

// Describe renders when a credential expires, e.g. "expires 3 days from now".
func Describe(o model.Organization, now time.Time) string {
	if o.ExpiresAt.IsZero() {
		return "no expiry set"
	}
	rel := humanize.RelTime(o.ExpiresAt, now, "ago", "from now")
	if o.ExpiresAt.After(now) {
		return "expires " + rel
	}
	return "expired " + rel
}

// WarnExpiring notifies once about every credential in orgs expiring within
// window and returns how many were reported.
func WarnExpiring(n Notifier, orgs []model.Organization, now time.Time, window time.Duration) (int, error) {
	expiring := Expiring(orgs, now, window)
	if len(expiring) == 0 {
		return 0, nil
	}

	lines := make([]string, len(expiring))
	for i, o := range expiring {
		lines[i] = fmt.Sprintf("%s: %s", o.Name, Describe(o, now))
	}
	title := "adotime: credential expiring"
	if len(expiring) > 1 {
		title = fmt.Sprintf("adotime: %d credentials expiring", len(expiring))
	}
	if err := n.Notify(title, strings.Join(lines, "\n")); err != nil {
		return 0, fmt.Errorf("sending notification: %w", err)
	}
	return len(expiring), nil
}
