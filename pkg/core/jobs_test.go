package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voyagelog/pkg/watcher"
)

// TestBaseJob_LockUnlock tests the atomic lock behavior.
func TestBaseJob_LockUnlock(t *testing.T) {
	b := NewBaseJob("test")

	if !b.TryLock() {
		t.Fatal("First TryLock should succeed")
	}
	if !b.Running() {
		t.Error("Running() should be true while locked")
	}
	if b.TryLock() {
		t.Error("Second TryLock should fail when already locked")
	}
	b.Unlock()
	if !b.TryLock() {
		t.Error("TryLock should succeed after Unlock")
	}
}

// TestBaseJob_Name tests the Name method.
func TestBaseJob_Name(t *testing.T) {
	tests := []struct {
		name     string
		jobName  string
		wantName string
	}{
		{"Simple name", "TestJob", "TestJob"},
		{"Empty name", "", ""},
		{"Unicode name", "作业", "作业"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBaseJob(tt.jobName)
			if got := b.Name(); got != tt.wantName {
				t.Errorf("Name() = %v, want %v", got, tt.wantName)
			}
		})
	}
}

type fakeDetector struct {
	mu      sync.Mutex
	changes []bool
}

func (f *fakeDetector) Changed() (watcher.Change, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.changes) == 0 {
		return watcher.Change{}, false
	}
	c := f.changes[0]
	f.changes = f.changes[1:]
	if c {
		return watcher.Change{Added: []string{"x.yml"}}, true
	}
	return watcher.Change{}, false
}

func TestRegenerateJob_ShouldFire(t *testing.T) {
	tests := []struct {
		name    string
		changes []bool
		want    []bool
	}{
		{"No changes", []bool{false, false}, []bool{false, false}},
		{"Change fires once pending", []bool{true, false}, []bool{true, true}},
		{"Later change", []bool{false, true}, []bool{false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewRegenerateJob(&fakeDetector{changes: tt.changes}, func(context.Context) error { return nil })
			for i, want := range tt.want {
				if got := j.ShouldFire(time.Now()); got != want {
					t.Errorf("ShouldFire() #%d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestRegenerateJob_RunClearsPending(t *testing.T) {
	var runs int32
	j := NewRegenerateJob(&fakeDetector{changes: []bool{true}}, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("boom")
	})

	if !j.ShouldFire(time.Now()) {
		t.Fatal("Expected job to fire")
	}
	j.Run(context.Background())
	if atomic.LoadInt32(&runs) != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if j.ShouldFire(time.Now()) {
		t.Error("Expected no fire after a run without new changes")
	}
}

func TestRegenerateJob_ChangeDuringRunIsKept(t *testing.T) {
	det := &fakeDetector{changes: []bool{true, true}}
	j := NewRegenerateJob(det, func(context.Context) error { return nil })

	if !j.ShouldFire(time.Now()) {
		t.Fatal("Expected job to fire")
	}
	j.TryLock()
	j.pending.Store(false)
	if j.ShouldFire(time.Now()) {
		t.Error("Must not fire while running")
	}
	j.Unlock()
	if !j.ShouldFire(time.Now()) {
		t.Error("Expected pending change to fire after the run")
	}
}

func TestTimeJob(t *testing.T) {
	var runs int32
	action := func(context.Context) { atomic.AddInt32(&runs, 1) }

	t.Run("Immediate", func(t *testing.T) {
		j := NewTimeJob("t", time.Hour, true, action)
		if !j.ShouldFire(time.Now()) {
			t.Fatal("Expected immediate fire")
		}
		j.Run(context.Background())
		if j.ShouldFire(time.Now()) {
			t.Error("Expected no fire before threshold")
		}
		if !j.ShouldFire(time.Now().Add(2 * time.Hour)) {
			t.Error("Expected fire after threshold")
		}
	})

	t.Run("Delayed", func(t *testing.T) {
		j := NewTimeJob("t", time.Hour, false, action)
		if j.ShouldFire(time.Now()) {
			t.Error("Expected delayed first run")
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		j := NewTimeJob("t", 0, true, action)
		if j.ShouldFire(time.Now()) {
			t.Error("Zero threshold disables the job")
		}
	})
}
