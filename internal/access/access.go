// Package access decides who may write to the log.
package access

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotAllowed = errors.New("not on the allowlist")

// Allowlist holds lower-cased email addresses. An empty list allows nobody.
type Allowlist struct {
	emails map[string]bool
}

func NewAllowlist(emails []string) *Allowlist {
	a := &Allowlist{emails: make(map[string]bool, len(emails))}
	for _, e := range emails {
		// Config values may arrive as one comma separated string.
		for _, part := range strings.Split(e, ",") {
			if part = normalize(part); part != "" {
				a.emails[part] = true
			}
		}
	}
	return a
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Allowlist) Allowed(email string) bool {
	if a == nil {
		return false
	}
	return a.emails[normalize(email)]
}

// Check returns ErrNotAllowed, wrapped with the address, when email may not
// write.
func (a *Allowlist) Check(email string) error {
	if email == "" {
		return fmt.Errorf("no email configured: %w", ErrNotAllowed)
	}
	if !a.Allowed(email) {
		return fmt.Errorf("%s: %w", email, ErrNotAllowed)
	}
	return nil
}

func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}
