package swappable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Reloadable is the capability every type served by a Singleton implements.
//
// DoReload runs on a freshly constructed candidate, never on a published
// instance. It performs the actual load (read a file, open a store, compile
// rules) and reports whether the candidate is fit to become current.
type Reloadable interface {
	DoReload() bool
}

// Hook configures a candidate before DoReload runs.
// Returning false aborts the reload and leaves the current instance untouched.
type Hook[T any] func(candidate T) bool

// Definition is the only construction path a Singleton uses for T.
//
// New builds a default instance and must be provided.
// Build constructs an instance from Opt. Init fails when it is nil.
// Decode converts raw options into Opt. Defaults to JSON decoding.
// Close releases a retired instance once its last lease is gone. It only
// runs when the holder is created WithRelease. If omitted, io.Closer is used
// when possible.
type Definition[Opt any, T Reloadable] struct {
	New    func() (T, error)
	Build  func(ctx context.Context, opt Opt) (T, error)
	Decode func(raw json.RawMessage) (Opt, error)
	Close  func(T) error
}

// Snapshot is one published instance together with its publication metadata.
type Snapshot[T any] struct {
	Value       T
	Generation  uint64
	PublishedAt time.Time
}

// Outcome reports how a reload attempt ended.
type Outcome uint8

const (
	// Failed means the candidate could not be constructed; an error accompanies it.
	Failed Outcome = iota
	// Published means the candidate became the current instance.
	Published
	// HookRejected means the hook returned false; DoReload never ran.
	HookRejected
	// ValidationRejected means DoReload returned false.
	ValidationRejected
)

func (o Outcome) String() string {
	switch o {
	case Failed:
		return "failed"
	case Published:
		return "published"
	case HookRejected:
		return "hook_rejected"
	case ValidationRejected:
		return "validation_rejected"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes render as their names in JSON and logs.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "failed":
		*o = Failed
	case "published":
		*o = Published
	case "hook_rejected":
		*o = HookRejected
	case "validation_rejected":
		*o = ValidationRejected
	default:
		return fmt.Errorf("unknown reload outcome %q", text)
	}
	return nil
}
