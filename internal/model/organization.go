package model

import (
	"strings"
	"time"
)

// Organization holds the credential and identity used for one ADO organization.
type Organization struct {
	Name        string
	Credential  string
	DisplayName string
	ExpiresAt   time.Time
}

// Missing lists the required settings that are empty.
func (o Organization) Missing() []string {
	var missing []string
	if strings.TrimSpace(o.Name) == "" {
		missing = append(missing, "organization")
	}
	if strings.TrimSpace(o.Credential) == "" {
		missing = append(missing, "credential")
	}
	if strings.TrimSpace(o.DisplayName) == "" {
		missing = append(missing, "display name")
	}
	return missing
}

func (o Organization) Complete() bool {
	return len(o.Missing()) == 0
}

// ExpiresWithin reports whether the credential has expired or expires within d of now.
// Records without an expiry never report as expiring.
func (o Organization) ExpiresWithin(now time.Time, d time.Duration) bool {
	if o.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(o.ExpiresAt)
}

// FindOrganization returns the record whose name matches exactly.
func FindOrganization(orgs []Organization, name string) (Organization, bool) {
	for _, o := range orgs {
		if o.Name == name {
			return o, true
		}
	}
	return Organization{}, false
}
