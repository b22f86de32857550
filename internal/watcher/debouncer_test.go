package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(timeout):
		t.Fatal("timeout waiting for batch")
		return nil
	}
}

func TestDebouncer_CoalescesBurstIntoOneBatch(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50*time.Millisecond, 4, nil)
	defer d.Stop()

	// When: several events for two files arrive in a burst
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "principles/security/b.md", Operation: OpModify})
		d.Add(FileEvent{Path: "catalog.yaml", Operation: OpModify})
		time.Sleep(5 * time.Millisecond)
	}

	// Then: one sorted batch with one event per path comes out
	batch := receive(t, d, time.Second)
	require.Len(t, batch, 2)
	assert.Equal(t, "catalog.yaml", batch[0].Path)
	assert.Equal(t, "principles/security/b.md", batch[1].Path)
}

func TestDebouncer_MergeRules(t *testing.T) {
	tests := []struct {
		name  string
		ops   []Operation
		want  Operation
		empty bool
	}{
		{"create then modify stays create", []Operation{OpCreate, OpModify}, OpCreate, false},
		{"modify then delete is delete", []Operation{OpModify, OpDelete}, OpDelete, false},
		{"delete then create is modify", []Operation{OpDelete, OpCreate}, OpModify, false},
		{"create then delete cancels", []Operation{OpCreate, OpDelete}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(30*time.Millisecond, 4, nil)
			defer d.Stop()

			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "a.md", Operation: op})
			}
			// A marker path guarantees a batch even when a.md cancels out.
			d.Add(FileEvent{Path: "z.md", Operation: OpModify})

			batch := receive(t, d, time.Second)
			if tt.empty {
				require.Len(t, batch, 1)
				assert.Equal(t, "z.md", batch[0].Path)
				return
			}
			require.Len(t, batch, 2)
			assert.Equal(t, tt.want, batch[0].Operation)
		})
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, 1, nil)

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "late.md", Operation: OpCreate})

	_, ok := <-d.Output()
	assert.False(t, ok, "output is closed")
}
