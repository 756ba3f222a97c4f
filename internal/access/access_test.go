package access

import (
	"errors"
	"testing"
)

func TestAllowlist(t *testing.T) {
	a := NewAllowlist([]string{" Alice@Example.com ", "bob@example.com,carol@example.com", ""})

	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"ALICE@example.com", true},
		{"bob@example.com", true},
		{"carol@example.com", true},
		{"mallory@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := a.Allowed(tt.email); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
}

func TestCheck(t *testing.T) {
	a := NewAllowlist([]string{"alice@example.com"})
	if err := a.Check("alice@example.com"); err != nil {
		t.Errorf("Check(alice) = %v, want nil", err)
	}
	if err := a.Check("mallory@example.com"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Check(mallory) = %v, want ErrNotAllowed", err)
	}
	if err := a.Check(""); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Check(\"\") = %v, want ErrNotAllowed", err)
	}

	var empty *Allowlist
	if empty.Allowed("alice@example.com") {
		t.Error("nil Allowlist allowed an address")
	}
}
