// Package session reacts to host events and drives the aggregator.
package session

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/ctrainer/internal/aggregator"
	"github.com/verte-zerg/ctrainer/internal/codec"
	"github.com/verte-zerg/ctrainer/internal/model"
	"github.com/verte-zerg/ctrainer/internal/schedule"
)

// CommandSink receives commands for the host.
type CommandSink interface {
	RepeatShot()
	AdvanceShot()
}

// BlobStore holds the serialized lifetime table.
type BlobStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, blob string) error
}

// Controller translates host notifications into aggregator calls. Like the
// aggregator it must only be used from the host callback thread.
type Controller struct {
	agg    *aggregator.Aggregator
	queue  *schedule.Queue
	sink   CommandSink
	store  BlobStore
	logger *slog.Logger

	settleDelay time.Duration
	autoAdvance bool
	enabled     bool

	// selfReset is set when the controller asked the host to repeat the shot;
	// the next reset event the host reports is the echo of that request.
	selfReset bool

	// OnOutcome, if set, is called after every processed outcome.
	OnOutcome func(aggregator.Outcome)
}

// New returns a Controller. A nil logger discards output.
func New(cfg model.Config, queue *schedule.Queue, sink CommandSink, store BlobStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		agg:         aggregator.New(cfg.MaxAttempts, logger),
		queue:       queue,
		sink:        sink,
		store:       store,
		logger:      logger,
		settleDelay: cfg.SettleDelay,
		autoAdvance: cfg.AutoAdvance,
		enabled:     cfg.Enabled,
	}
}

// Aggregator exposes the aggregator for read-only presentation.
func (c *Controller) Aggregator() *aggregator.Aggregator { return c.agg }

// Enabled reports whether attempt events are tracked.
func (c *Controller) Enabled() bool { return c.enabled }

// SetEnabled turns attempt tracking on or off. Pack and shot changes are
// followed either way.
func (c *Controller) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// SetMaxAttempts changes the run length for all later transitions.
func (c *Controller) SetMaxAttempts(n int) {
	c.agg.SetMaxAttempts(n)
}

// SetAutoAdvance chooses between repeating and advancing after a completed run.
func (c *Controller) SetAutoAdvance(v bool) {
	c.autoAdvance = v
}

// Load reads the lifetime table from the store. A missing, unreadable or
// malformed blob leaves the trainer with no lifetime data.
func (c *Controller) Load(ctx context.Context) {
	blob, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error("failed to read lifetime data; starting fresh", "error", err)
		c.agg.SetStore(nil)
		return
	}
	data, err := codec.Decode(blob)
	if err != nil {
		c.logger.Error("failed to decode lifetime data; starting fresh", "error", err)
		c.agg.SetStore(nil)
		return
	}
	c.agg.SetStore(data)
	c.logger.Debug("lifetime data loaded", "packs", len(data))
}

// PackLoaded handles a training pack being loaded or restarted.
func (c *Controller) PackLoaded(totalShots, activeIndex int, packID string) {
	hadPack := c.agg.PackID() != ""
	c.queue.Clear()
	c.selfReset = false
	c.agg.LoadPack(packID, totalShots, activeIndex)
	if hadPack {
		c.save()
	}
}

// AttemptStarted handles the start of an attempt on the current shot.
func (c *Controller) AttemptStarted() {
	if !c.enabled {
		return
	}
	c.agg.StartAttempt()
}

// BoostTick handles one physics tick of boost input.
func (c *Controller) BoostTick(held bool) {
	if !c.enabled {
		return
	}
	c.agg.AccrueBoost(held)
}

// AttemptSucceeded handles a goal on the current shot.
func (c *Controller) AttemptSucceeded() {
	if !c.enabled {
		return
	}
	c.scheduleOutcome(true)
}

// AttemptFailed handles a reset or abnormal end of the current attempt. The
// first reset after a self-issued repeat is ignored.
func (c *Controller) AttemptFailed() {
	if c.selfReset {
		c.selfReset = false
		c.logger.Debug("ignoring reset issued by the trainer")
		return
	}
	if !c.enabled {
		return
	}
	c.scheduleOutcome(false)
}

func (c *Controller) scheduleOutcome(success bool) {
	c.queue.After(c.settleDelay, func() {
		c.processOutcome(success)
	})
}

func (c *Controller) processOutcome(success bool) {
	out, ok := c.agg.RecordOutcome(success)
	if !ok {
		return
	}
	c.agg.Fold()
	c.save()
	if out.RunComplete && c.autoAdvance {
		c.sink.AdvanceShot()
	} else {
		c.selfReset = true
		c.sink.RepeatShot()
	}
	if c.OnOutcome != nil {
		c.OnOutcome(out)
	}
}

// ShotChanged handles navigation to another shot of the pack.
func (c *Controller) ShotChanged(newIndex int) {
	resolved := c.agg.ChangeShot(newIndex)
	c.selfReset = false
	c.save()
	c.logger.Debug("shot changed", "requested", newIndex, "shot", resolved)
}

// SessionResetRequested zeroes the session counters of every shot.
func (c *Controller) SessionResetRequested() {
	c.queue.Clear()
	c.agg.ResetSession()
}

// LifetimeClearRequested erases the persisted records of the current pack.
func (c *Controller) LifetimeClearRequested() {
	c.agg.ClearLifetime()
	c.save()
	c.logger.Info("lifetime data cleared", "pack", c.agg.PackID())
}

// Tick runs deferred work that has become due.
func (c *Controller) Tick() {
	c.queue.RunDue()
}

// Close drops pending work and performs a final save.
func (c *Controller) Close() {
	c.queue.Clear()
	c.agg.Fold()
	c.save()
}

func (c *Controller) save() {
	blob := codec.Encode(c.agg.Store())
	if err := c.store.Save(context.Background(), blob); err != nil {
		c.logger.Error("failed to save lifetime data", "error", err)
	}
}
