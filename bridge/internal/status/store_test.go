package status

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestRecordSuccessAndGet(t *testing.T) {
	st := New([]string{"node"}, 30*time.Second)
	st.RecordSuccess("node", 12, 3, 1)

	e, ok := st.Get("node")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.SamplesLastPoll != 12 {
		t.Errorf("SamplesLastPoll: got %d, want 12", e.SamplesLastPoll)
	}
	if e.SkippedLastPoll != 3 {
		t.Errorf("SkippedLastPoll: got %d, want 3", e.SkippedLastPoll)
	}
	if e.LastSuccess.IsZero() {
		t.Error("LastSuccess: still zero after RecordSuccess")
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(nil, 30*time.Second)
	_, ok := st.Get("unknown")
	if ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestRecordFailure_IncrementsAndKeepsMessage(t *testing.T) {
	st := New([]string{"node"}, 30*time.Second)
	st.RecordFailure("node", errors.New("fetch: status 503"))
	st.RecordFailure("node", errors.New("fetch: status 500"))

	e, _ := st.Get("node")
	if e.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures: got %d, want 2", e.ConsecutiveFailures)
	}
	if e.LastError != "fetch: status 500" {
		t.Errorf("LastError: got %q, want the latest message", e.LastError)
	}
	if e.LastErrorAt.IsZero() {
		t.Error("LastErrorAt: still zero after RecordFailure")
	}
}

func TestRecordSuccess_ResetsFailureStreak(t *testing.T) {
	st := New([]string{"node"}, 30*time.Second)
	st.RecordFailure("node", errors.New("boom"))
	st.RecordFailure("node", errors.New("boom"))
	st.RecordSuccess("node", 1, 0, 1)

	e, _ := st.Get("node")
	if e.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures after success: got %d, want 0", e.ConsecutiveFailures)
	}
}

func TestDocsPushed_Accumulates(t *testing.T) {
	st := New([]string{"node"}, 30*time.Second)
	st.RecordSuccess("node", 5, 0, 1)
	st.RecordSuccess("node", 5, 0, 1)
	st.RecordSuccess("node", 5, 0, 3)

	e, _ := st.Get("node")
	if e.DocsPushed != 5 {
		t.Errorf("DocsPushed: got %d, want 5", e.DocsPushed)
	}
}

func TestList_ConfigurationOrder(t *testing.T) {
	st := New([]string{"charlie", "alpha", "bravo"}, 30*time.Second)

	entries := st.List()
	if len(entries) != 3 {
		t.Fatalf("List: got %d entries, want 3", len(entries))
	}
	want := []string{"charlie", "alpha", "bravo"}
	for i, e := range entries {
		if e.SourceID != want[i] {
			t.Errorf("List[%d].SourceID: got %q, want %q", i, e.SourceID, want[i])
		}
	}
}

func TestNew_DeduplicatesIDs(t *testing.T) {
	st := New([]string{"node", "node"}, 30*time.Second)
	if st.Count() != 1 {
		t.Errorf("Count: got %d, want 1", st.Count())
	}
}

func TestRecord_UnknownSourceRegisters(t *testing.T) {
	st := New(nil, 30*time.Second)
	st.RecordSuccess("late", 1, 0, 1)

	if _, ok := st.Get("late"); !ok {
		t.Fatal("Get after RecordSuccess on unregistered source: expected entry")
	}
	if st.Count() != 1 {
		t.Errorf("Count: got %d, want 1", st.Count())
	}
}

func TestState_Derivation(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name  string
		setup func(st *Store)
		want  string
	}{
		{
			name:  "never polled",
			setup: func(st *Store) {},
			want:  StateUnknown,
		},
		{
			name: "recent success",
			setup: func(st *Store) {
				st.now = fixedClock(base)
				st.RecordSuccess("node", 1, 0, 1)
			},
			want: StateOK,
		},
		{
			name: "old success",
			setup: func(st *Store) {
				st.now = fixedClock(base.Add(-2 * time.Minute))
				st.RecordSuccess("node", 1, 0, 1)
			},
			want: StateStale,
		},
		{
			name: "failures only, below threshold",
			setup: func(st *Store) {
				st.now = fixedClock(base)
				st.RecordFailure("node", errors.New("boom"))
			},
			want: StateStale,
		},
		{
			name: "isolated failure after recent success",
			setup: func(st *Store) {
				st.now = fixedClock(base)
				st.RecordSuccess("node", 1, 0, 1)
				st.RecordFailure("node", errors.New("boom"))
			},
			want: StateOK,
		},
		{
			name: "consecutive failures at threshold",
			setup: func(st *Store) {
				st.now = fixedClock(base)
				st.RecordSuccess("node", 1, 0, 1)
				for i := 0; i < failingThreshold; i++ {
					st.RecordFailure("node", errors.New("boom"))
				}
			},
			want: StateFailing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New([]string{"node"}, 30*time.Second)
			tt.setup(st)

			// State reads the clock at base regardless of when records landed.
			st.now = fixedClock(base)
			e, _ := st.Get("node")
			if got := st.State(e); got != tt.want {
				t.Errorf("State: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConcurrentRecords(t *testing.T) {
	st := New([]string{"node"}, 30*time.Second)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.RecordSuccess("node", 1, 0, 1)
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()

	e, _ := st.Get("node")
	if e.DocsPushed != 50 {
		t.Errorf("DocsPushed after concurrent records: got %d, want 50", e.DocsPushed)
	}
}
