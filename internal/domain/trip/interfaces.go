package trip

import "context"

// Store is the remote ordered key-value store.
type Store interface {
	SetValue(ctx context.Context, path string, fields map[string]string) error
	RemoveValue(ctx context.Context, path string) error
	ReadOrderedByKey(ctx context.Context, path string) (Snapshot, error)
}

// AuthChecker reports whether a session is active.
type AuthChecker interface {
	Authenticated() bool
}

// Recorder counts operation outcomes.
type Recorder interface {
	RecordOperation(operation string, ok bool)
}
