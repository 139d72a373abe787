package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_AdmitsUnderCapacity(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error on request %d: %v", i, err)
		}
	}

	status := rl.Status()
	if status.InWindow != 3 {
		t.Errorf("InWindow = %d, want 3", status.InWindow)
	}
	if status.TotalAdmitted != 3 {
		t.Errorf("TotalAdmitted = %d, want 3", status.TotalAdmitted)
	}
}

func TestRateLimiter_BlocksAtCapacity(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)

	if !rl.TryAdmit() {
		t.Fatal("first TryAdmit() should succeed")
	}
	if rl.TryAdmit() {
		t.Error("second TryAdmit() should fail at capacity")
	}

	// Wait must return once the context is cancelled rather than spin forever.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRateLimiter_EvictsStaleTimestamps(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 2)

	current := time.Now()
	rl.now = func() time.Time { return current }

	if !rl.TryAdmit() || !rl.TryAdmit() {
		t.Fatal("admissions under capacity should succeed")
	}
	if rl.TryAdmit() {
		t.Fatal("TryAdmit() should fail at capacity")
	}

	// Move past the window; old timestamps must be discarded.
	current = current.Add(61 * time.Second)
	if !rl.TryAdmit() {
		t.Error("TryAdmit() should succeed after window elapses")
	}

	status := rl.Status()
	if status.InWindow != 1 {
		t.Errorf("InWindow = %d, want 1 after eviction", status.InWindow)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	status := rl.Status()
	if status.Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", status.Capacity, DefaultCapacity)
	}
}
