package axi4

import (
	"context"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/simlogcheck/verify"
)

// HookPosTxnQueued marks an address handshake entering an issue queue.
var HookPosTxnQueued = &sim.HookPos{Name: "Txn Queued"}

// HookPosTxnSent marks a transaction leaving the issue queue for the
// backend.
var HookPosTxnSent = &sim.HookPos{Name: "Txn Sent"}

// HookPosTxnCompleted marks a transaction retired by its response.
var HookPosTxnCompleted = &sim.HookPos{Name: "Txn Completed"}

// TraceHook logs every transaction step at trace level.
type TraceHook struct {
	logger *slog.Logger
}

// NewTraceHook creates a hook that writes to logger.
func NewTraceHook(logger *slog.Logger) *TraceHook {
	return &TraceHook{logger: logger}
}

// Func logs the transaction carried by ctx.
func (h *TraceHook) Func(ctx sim.HookCtx) {
	txn, ok := ctx.Item.(Txn)
	if !ok {
		return
	}

	h.logger.Log(context.Background(), verify.LevelTrace, ctx.Pos.Name,
		"channel", string(txn.Channel),
		"id", hex(txn.ID),
		"addr", hex(txn.Addr),
		"line", txn.Line,
	)
}
