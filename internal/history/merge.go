package history

import "safeTasks/internal/model"

const mergeStepFactor = 2

// LogCursor reads one ordered stream of entries.
type LogCursor interface {
	// Peek returns the current head, or false when the stream is exhausted.
	Peek() (model.LogEntry, bool)
	Advance()
}

type sliceCursor struct {
	entries []model.LogEntry
	pos     int
}

// NewSliceCursor returns a cursor over entries.
func NewSliceCursor(entries []model.LogEntry) LogCursor {
	return &sliceCursor{entries: entries}
}

func (c *sliceCursor) Peek() (model.LogEntry, bool) {
	if c.pos >= len(c.entries) {
		return model.LogEntry{}, false
	}
	return c.entries[c.pos], true
}

func (c *sliceCursor) Advance() {
	if c.pos < len(c.entries) {
		c.pos++
	}
}

// MergeLogs merges individually ordered sources into one oldest-first stream.
func MergeLogs(sources ...[]model.LogEntry) []model.LogEntry {
	switch len(sources) {
	case 0:
		return []model.LogEntry{}
	case 1:
		return sources[0]
	}

	total := 0
	cursors := make([]LogCursor, len(sources))
	for i, source := range sources {
		total += len(source)
		cursors[i] = NewSliceCursor(source)
	}
	return Merge(cursors, mergeStepFactor*total+len(sources))
}

// Merge performs a k-way merge over cursors, picking the oldest head at each
// step. Ties go to the earlier cursor. At most maxSteps entries are taken; on
// malformed input the prefix merged so far is returned.
func Merge(cursors []LogCursor, maxSteps int) []model.LogEntry {
	out := make([]model.LogEntry, 0)
	for step := 0; step < maxSteps; step++ {
		next := -1
		var head model.LogEntry
		for i, cursor := range cursors {
			entry, ok := cursor.Peek()
			if !ok {
				continue
			}
			if next < 0 || entry.Before(head) {
				next, head = i, entry
			}
		}
		if next < 0 {
			break
		}
		out = append(out, head)
		cursors[next].Advance()
	}
	return out
}
