// ABOUTME: Membership reconciliation engine core and best-effort batch runner.
// ABOUTME: Set differences are applied element-wise with bounded concurrency.

package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/opsmith-io/wardroom/internal/metrics"
	"github.com/opsmith-io/wardroom/internal/platform"
)

const (
	// inviteParallelism bounds concurrent invites within one batch.
	inviteParallelism = 20

	// kickParallelism bounds concurrent kicks within one batch.
	kickParallelism = 10
)

// Invoker identifies the admin who triggered an operation and where the
// follow-up report should be delivered.
type Invoker struct {
	UserID    platform.UserID
	ChannelID string
}

// Engine executes membership reconciliation operations against the
// platform adapter. A single engine serves all channels; invocations are
// independent units of work.
type Engine struct {
	adapter platform.Adapter
	history platform.HistorySource
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an engine. When the adapter also implements
// platform.HistorySource the auxiliary activity report is available.
func New(adapter platform.Adapter, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		adapter: adapter,
		metrics: m,
		logger:  logger.With("component", "reconcile"),
	}
	if hs, ok := adapter.(platform.HistorySource); ok {
		e.history = hs
	}
	return e
}

// notify reports an operation outcome to the invoking admin. Delivery
// failures are logged, never propagated: the operation's own result stands.
func (e *Engine) notify(ctx context.Context, inv Invoker, text string) {
	if inv.UserID == "" || inv.ChannelID == "" {
		return
	}
	if err := e.adapter.PostEphemeral(ctx, inv.ChannelID, inv.UserID, text); err != nil {
		e.logger.Warn("failed to notify invoker",
			"user_id", inv.UserID,
			"error", err)
	}
}

// batchResult summarizes one best-effort batch.
type batchResult struct {
	applied int
	benign  int
	failed  int
}

// inviteBatch invites every id into the channel with at most limit calls
// in flight. Every element is attempted; failures are classified, counted,
// and contained.
func (e *Engine) inviteBatch(ctx context.Context, ch platform.Channel, ids []platform.UserID, limit int) batchResult {
	return e.runBatch(ctx, ids, limit, "invite", e.metrics.Invites, func(id platform.UserID) error {
		return e.adapter.Invite(ctx, ch, id)
	})
}

// kickBatch removes every id from the channel. A limit of 1 runs the batch
// in strict sequential order.
func (e *Engine) kickBatch(ctx context.Context, ch platform.Channel, ids []platform.UserID, limit int) batchResult {
	return e.runBatch(ctx, ids, limit, "kick", e.metrics.Kicks, func(id platform.UserID) error {
		return e.adapter.Kick(ctx, ch, id)
	})
}

func (e *Engine) runBatch(ctx context.Context, ids []platform.UserID, limit int, op string, counter *prometheus.CounterVec, call func(platform.UserID) error) batchResult {
	var applied, benign, failed atomic.Int32

	apply := func(id platform.UserID) {
		err := call(id)
		switch platform.Classify(err) {
		case platform.KindBenign:
			if err == nil {
				applied.Add(1)
				counter.WithLabelValues("ok").Inc()
			} else {
				benign.Add(1)
				counter.WithLabelValues("benign").Inc()
			}
		default:
			failed.Add(1)
			counter.WithLabelValues("error").Inc()
			e.metrics.PlatformErrors.WithLabelValues(kindLabel(platform.Classify(err))).Inc()
			e.logger.Error("batch element failed",
				"op", op,
				"user_id", id,
				"error", err)
		}
	}

	if limit <= 1 {
		for _, id := range ids {
			apply(id)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(limit)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				apply(id)
				return nil
			})
		}
		_ = g.Wait() // elements never return errors; the batch cannot abort
	}

	return batchResult{
		applied: int(applied.Load()),
		benign:  int(benign.Load()),
		failed:  int(failed.Load()),
	}
}

func kindLabel(k platform.ErrorKind) string {
	switch k {
	case platform.KindTransient:
		return "transient"
	case platform.KindNotFound:
		return "not_found"
	case platform.KindVerification:
		return "verification"
	case platform.KindStorage:
		return "storage"
	default:
		return "unexpected"
	}
}
