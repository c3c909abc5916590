package internal

import (
	"regexp"
	"testing"
)

func TestNewSequence(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{6}$`)
	for i := 0; i < 50; i++ {
		seq, err := NewSequence(6)
		if err != nil {
			t.Fatalf("sequence: %v", err)
		}
		if !re.MatchString(seq) {
			t.Fatalf("unexpected sequence %q", seq)
		}
	}
	if _, err := NewSequence(3); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestNormalizeSequence(t *testing.T) {
	if got := NormalizeSequence("  ab12cd\n"); got != "AB12CD" {
		t.Fatalf("got %q", got)
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	parsed, err := ParseSessionID(sid.String())
	if err != nil || parsed != sid {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ParseSessionID("short"); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestNewOpaqueToken(t *testing.T) {
	a, _ := NewOpaqueToken()
	b, _ := NewOpaqueToken()
	if len(a) != 43 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}
