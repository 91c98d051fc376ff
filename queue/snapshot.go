package queue

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// snapshotVersion guards against decoding snapshots from incompatible
// releases.
const snapshotVersion = 1

// Snapshot is the persistence artifact: enough of the queue's non-terminal
// state to reconstruct scheduling decisions after a restart. Task bodies are
// not serializable and are re-attached on restore via Config.Rehydrate.
type Snapshot struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Tasks   []TaskRecord `json:"tasks"`
}

// TaskRecord is one persisted task.
type TaskRecord struct {
	ID           string   `json:"id"`
	Priority     int      `json:"priority"`
	Dependencies []string `json:"dependencies,omitempty"`
	Attempts     int      `json:"attempts,omitempty"`
	State        string   `json:"state"`
	Seq          uint64   `json:"seq"`
}

// snapshotLocked captures the non-terminal tasks in submission order. The
// queue mutex must be held.
func (q *Queue) snapshotLocked() Snapshot {
	records := make([]TaskRecord, 0, len(q.tasks))
	for _, t := range q.tasks {
		records = append(records, TaskRecord{
			ID:           t.id,
			Priority:     t.priority,
			Dependencies: t.deps,
			Attempts:     int(t.attempts.Load()),
			State:        t.getState().String(),
			Seq:          t.seq,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	return Snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Tasks:   records,
	}
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("queue: decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("queue: snapshot version %d not supported", s.Version)
	}
	return s, nil
}
