package task

import (
	"context"
	"testing"
	"time"
)

func TestNewSweeper_RequiresManager(t *testing.T) {
	_, err := NewSweeper(SweeperConfig{Schedule: "* * * * *", MaxAge: time.Hour})
	if err == nil {
		t.Fatal("expected error for missing manager")
	}
}

func TestNewSweeper_RejectsInvalidSchedule(t *testing.T) {
	m := NewManager()
	cases := []string{"", "not a cron", "CRON_TZ=UTC * * * * *"}
	for _, expr := range cases {
		if _, err := NewSweeper(SweeperConfig{Manager: m, Schedule: expr, MaxAge: time.Hour}); err == nil {
			t.Errorf("schedule %q should be rejected", expr)
		}
	}
}

func TestNewSweeper_AcceptsFiveFieldExpression(t *testing.T) {
	m := NewManager()
	if _, err := NewSweeper(SweeperConfig{Manager: m, Schedule: "*/5 * * * *", MaxAge: time.Hour}); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	m := NewManager()
	s, err := NewSweeper(SweeperConfig{Manager: m, Schedule: "* * * * *", MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stop on a stopped sweeper is a no-op.
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("repeat Stop: %v", err)
	}
}
