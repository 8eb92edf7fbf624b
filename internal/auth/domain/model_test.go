package domain

import (
	"testing"
	"time"
)

func TestDeriveState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name      string
		consumed  bool
		expiresAt time.Time
		tries     int
		maxTries  int
		want      SessionState
	}{
		{"active", false, future, 0, 3, StateActive},
		{"active last try available", false, future, 2, 3, StateActive},
		{"consumed wins over time", true, past, 0, 3, StateConsumed},
		{"expired by time", false, past, 0, 3, StateExpired},
		{"expired exactly at boundary", false, now, 0, 3, StateExpired},
		{"exhausted", false, future, 3, 3, StateExhausted},
		{"expired wins over exhausted", false, past, 3, 3, StateExpired},
		{"no counter never exhausts", false, future, 99, 0, StateActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveState(tc.consumed, tc.expiresAt, tc.tries, tc.maxTries, now)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestLoginSessionStateIgnoresTries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := LoginSession{ExpiresAt: now.Add(time.Hour)}
	if got := session.State(now); got != StateActive {
		t.Fatalf("expected active, got %s", got)
	}

	session.Expired = true
	if got := session.State(now); got != StateConsumed {
		t.Fatalf("expected consumed, got %s", got)
	}
}
