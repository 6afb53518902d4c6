// Package hooks implements the observability envelope every operation in
// the write pipeline and schema manager runs inside (§4.F.1, §4.E). Hooks
// are advisory: they observe an operation's lifecycle but never
// influence its outcome. A hook that panics is recovered, logged at Warn
// and swallowed (§7, §9 "Hook non-interference"); hooks have no error
// return, and a recovered panic is not passed to OnError.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OperationContext is the structured context passed to every hook,
// mirroring beads' envelope of {operationId, graphId, startedAt,
// operation, entity, kind, id}.
type OperationContext struct {
	OperationID string
	GraphID     string
	StartedAt   time.Time
	Operation   string // e.g. "create", "update", "delete", "migrate"
	Entity      string // "node" or "edge"
	Kind        string
	ID          string
}

// EndContext is passed to OnOperationEnd.
type EndContext struct {
	OperationContext
	DurationMs int64
	Err        error
}

// Hooks is the set of user-registered callbacks. Every field is
// optional; a nil callback is simply skipped. Hooks must not be
// promoted into plugin points — they observe, they never gate (§9).
type Hooks struct {
	OnOperationStart func(ctx context.Context, opctx OperationContext)
	OnOperationEnd   func(ctx context.Context, endctx EndContext)
	OnError          func(ctx context.Context, opctx OperationContext, err error)
	OnBeforeMigrate  func(ctx context.Context, graphID string, fromVersion, toVersion int)
	OnAfterMigrate   func(ctx context.Context, graphID string, fromVersion, toVersion int)
}

// Envelope generates an operation id and timestamp, invokes the hooks
// fire-and-forget around fn's execution, and returns fn's error
// unchanged — hooks never influence the outcome (§4.F.1).
func (h Hooks) Envelope(ctx context.Context, graphID, operation, entity, kind, id string, fn func(ctx context.Context) error) error {
	opctx := OperationContext{
		OperationID: uuid.NewString(),
		GraphID:     graphID,
		StartedAt:   time.Now(),
		Operation:   operation,
		Entity:      entity,
		Kind:        kind,
		ID:          id,
	}

	h.fireStart(ctx, opctx)

	err := fn(ctx)

	duration := time.Since(opctx.StartedAt)
	h.fireEnd(ctx, EndContext{OperationContext: opctx, DurationMs: duration.Milliseconds(), Err: err})
	if err != nil {
		h.fireError(ctx, opctx, err)
	}
	return err
}

func (h Hooks) fireStart(ctx context.Context, opctx OperationContext) {
	if h.OnOperationStart == nil {
		return
	}
	h.safely(func() { h.OnOperationStart(ctx, opctx) })
}

func (h Hooks) fireEnd(ctx context.Context, endctx EndContext) {
	if h.OnOperationEnd == nil {
		return
	}
	h.safely(func() { h.OnOperationEnd(ctx, endctx) })
}

func (h Hooks) fireError(ctx context.Context, opctx OperationContext, err error) {
	if h.OnError == nil {
		return
	}
	h.safely(func() { h.OnError(ctx, opctx, err) })
}

// FireBeforeMigrate and FireAfterMigrate bracket an auto-migration
// (§4.E). They are advisory and must not perform data transformations.
func (h Hooks) FireBeforeMigrate(ctx context.Context, graphID string, from, to int) {
	if h.OnBeforeMigrate == nil {
		return
	}
	h.safely(func() { h.OnBeforeMigrate(ctx, graphID, from, to) })
}

func (h Hooks) FireAfterMigrate(ctx context.Context, graphID string, from, to int) {
	if h.OnAfterMigrate == nil {
		return
	}
	h.safely(func() { h.OnAfterMigrate(ctx, graphID, from, to) })
}

// Combine merges multiple Hooks values so more than one subscriber (a
// user-registered callback and, say, hooks.NewOtelHooks()) can observe
// the same envelope. Each field fires every non-nil callback in order.
func Combine(all ...Hooks) Hooks {
	var combined Hooks
	combined.OnOperationStart = func(ctx context.Context, opctx OperationContext) {
		for _, h := range all {
			if h.OnOperationStart != nil {
				h.OnOperationStart(ctx, opctx)
			}
		}
	}
	combined.OnOperationEnd = func(ctx context.Context, endctx EndContext) {
		for _, h := range all {
			if h.OnOperationEnd != nil {
				h.OnOperationEnd(ctx, endctx)
			}
		}
	}
	combined.OnError = func(ctx context.Context, opctx OperationContext, err error) {
		for _, h := range all {
			if h.OnError != nil {
				h.OnError(ctx, opctx, err)
			}
		}
	}
	combined.OnBeforeMigrate = func(ctx context.Context, graphID string, from, to int) {
		for _, h := range all {
			if h.OnBeforeMigrate != nil {
				h.OnBeforeMigrate(ctx, graphID, from, to)
			}
		}
	}
	combined.OnAfterMigrate = func(ctx context.Context, graphID string, from, to int) {
		for _, h := range all {
			if h.OnAfterMigrate != nil {
				h.OnAfterMigrate(ctx, graphID, from, to)
			}
		}
	}
	return combined
}

// safely runs a hook and swallows any panic, logging it at Warn. A hook
// that throws is reported and swallowed, never corrupting the operation
// outcome (§7).
func (h Hooks) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("hook panicked, ignoring", "recovered", r)
		}
	}()
	fn()
}
