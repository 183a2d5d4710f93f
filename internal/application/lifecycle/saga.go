package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/metrics"
)

type compensation struct {
	step string
	undo func(context.Context) error
}

// saga is a stack of undo closures for committed writes. unwind runs them
// newest first and never stops early.
type saga struct {
	log    *slog.Logger
	steps  []compensation
	onFail func(ctx context.Context, step string, err error)
}

func (sg *saga) push(step string, undo func(context.Context) error) {
	sg.steps = append(sg.steps, compensation{step: step, undo: undo})
}

// unwind compensates every committed step and returns how many undos
// failed. Failures are reported, not returned.
func (sg *saga) unwind(ctx context.Context) int {
	// Compensation must run even when the request context is already done.
	ctx = context.WithoutCancel(ctx)
	failed := 0
	for i := len(sg.steps) - 1; i >= 0; i-- {
		c := sg.steps[i]
		if err := runUndo(ctx, c); err != nil {
			failed++
			metrics.SagaCompensationsTotal.WithLabelValues(c.step, "failed").Inc()
			sg.log.Error("compensation failed", "step", c.step, "err", err)
			if sg.onFail != nil {
				sg.onFail(ctx, c.step, err)
			}
			continue
		}
		metrics.SagaCompensationsTotal.WithLabelValues(c.step, "ok").Inc()
		sg.log.Warn("compensated", "step", c.step)
	}
	sg.steps = nil
	return failed
}

func runUndo(ctx context.Context, c compensation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("undo %s panicked: %v", c.step, r)
		}
	}()
	return c.undo(ctx)
}
