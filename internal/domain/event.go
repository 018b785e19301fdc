package domain

// EventKind names what an observer should re-read. Events carry no payload.
type EventKind string

const (
	// EventTasksChanged asks observers to re-read the active forest.
	EventTasksChanged EventKind = "tasksChanged"

	// EventWorkspaceChanged asks observers to re-read the workspace set
	// and the active name.
	EventWorkspaceChanged EventKind = "workspaceChanged"
)

// EventKinds lists every kind in a stable order.
func EventKinds() []EventKind {
	return []EventKind{EventTasksChanged, EventWorkspaceChanged}
}

// ParseEventKind returns the kind named by s.
func ParseEventKind(s string) (EventKind, bool) {
	for _, k := range EventKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
