package domain

import (
	"strings"
	"testing"
	"time"
)

func TestBeadStatus_Terminal(t *testing.T) {
	tests := []struct {
		status BeadStatus
		want   bool
	}{
		{BeadPending, false},
		{BeadRunning, false},
		{BeadCompleted, true},
		{BeadFailed, true},
		{BeadSkipped, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBead_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from BeadStatus
		to   BeadStatus
		want bool
	}{
		{"pending to running", BeadPending, BeadRunning, true},
		{"pending to skipped", BeadPending, BeadSkipped, true},
		{"pending to completed", BeadPending, BeadCompleted, true},
		{"running to completed", BeadRunning, BeadCompleted, true},
		{"running to failed", BeadRunning, BeadFailed, true},
		{"running to skipped", BeadRunning, BeadSkipped, false},
		{"completed to running", BeadCompleted, BeadRunning, false},
		{"failed to completed", BeadFailed, BeadCompleted, false},
		{"skipped to running", BeadSkipped, BeadRunning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bead{Status: tt.from}
			if got := b.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNewBead(t *testing.T) {
	b := NewBead("run-1", "Analyze Repository", "analysis")
	if !strings.HasPrefix(b.ID, "bead-") {
		t.Errorf("ID = %q, want bead- prefix", b.ID)
	}
	if b.Status != BeadPending {
		t.Errorf("Status = %q, want pending", b.Status)
	}
	if b.Metadata == nil {
		t.Error("Metadata should be initialized")
	}
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 30, 12, 0, time.UTC)
	id := NewRunID(now)
	if !strings.HasPrefix(id, "run-20260901-153012-") {
		t.Errorf("run ID = %q, want run-20260901-153012- prefix", id)
	}
	if len(id) != len("run-20260901-153012-")+6 {
		t.Errorf("run ID length = %d, want %d", len(id), len("run-20260901-153012-")+6)
	}

	// IDs are unique across calls
	if NewRunID(now) == NewRunID(now) {
		t.Error("run IDs should be unique")
	}
}
