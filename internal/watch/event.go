package watch

import (
	"time"
)

// EventKind classifies a filesystem change.
type EventKind string

const (
	Created  EventKind = "created"
	Modified EventKind = "modified"
	Deleted  EventKind = "deleted"
)

// FileEvent is one change notification from a watched root.
type FileEvent struct {
	Path string
	Kind EventKind
	At   time.Time
}

// coalesce folds events by path. The first occurrence fixes the position and
// the latest kind wins.
func coalesce(events []FileEvent) []FileEvent {
	out := make([]FileEvent, 0, len(events))
	index := make(map[string]int, len(events))
	for _, ev := range events {
		if i, ok := index[ev.Path]; ok {
			out[i].Kind = ev.Kind
			out[i].At = ev.At
			continue
		}
		index[ev.Path] = len(out)
		out = append(out, ev)
	}
	return out
}

func paths(events []FileEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Path
	}
	return out
}
