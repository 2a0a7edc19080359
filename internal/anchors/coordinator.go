// Package anchors owns the live anchor set of a session.
//
// The Coordinator records anchor intents raised by input events, turns at most
// one of them per frame into an asynchronous anchor creation, restores anchors
// persisted by earlier sessions and deletes every live anchor on request. The
// live set is only touched from the session loop.
//
// A DeleteAll advances the coordinator epoch. Creations and restorations that
// were issued in an earlier epoch and resolve afterwards are deleted on arrival
// instead of joining the live set, so a "delete all" is never undone by a late
// resolution.
package anchors

import (
	"context"
	"log/slog"
	"time"

	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/telemetry"
	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// Visualizer renders anchors that join the live set
type Visualizer interface {
	// ShowAnchor is called exactly once for every anchor added to the live set
	ShowAnchor(anchor *tracking.Anchor, recovered bool)
}

// VisualizerFunc adapts a function to the Visualizer interface
type VisualizerFunc func(anchor *tracking.Anchor, recovered bool)

// ShowAnchor calls f
func (f VisualizerFunc) ShowAnchor(anchor *tracking.Anchor, recovered bool) {
	f(anchor, recovered)
}

// Live is an anchor in the live set
type Live struct {
	Anchor *tracking.Anchor

	// Recovered is true when the anchor was restored from a prior session
	Recovered bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithMetrics records live set changes on the given instruments
func WithMetrics(m *telemetry.AnchorMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// Coordinator is the anchor state machine of a session
type Coordinator struct {
	loop       *loop.Loop
	provider   tracking.AnchorProvider
	visualizer Visualizer
	metrics    *telemetry.AnchorMetrics

	pending *tracking.Pose
	live    map[string]Live
	order   []string
	epoch   uint64
}

// New creates a coordinator with an empty live set
func New(l *loop.Loop, provider tracking.AnchorProvider, visualizer Visualizer, opts ...Option) *Coordinator {
	c := &Coordinator{
		loop:       l,
		provider:   provider,
		visualizer: visualizer,
		live:       make(map[string]Live),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestAnchorAt records an anchor intent at pose, replacing any intent not yet flushed
func (c *Coordinator) RequestAnchorAt(pose tracking.Pose) {
	if c.pending != nil {
		slog.Debug("Dropping unflushed anchor request",
			"dropped", c.pending.Position,
			"replacement", pose.Position)
	}
	p := pose
	c.pending = &p
}

// Pending returns the unflushed anchor intent, if any
func (c *Coordinator) Pending() (tracking.Pose, bool) {
	if c.pending == nil {
		return tracking.Pose{}, false
	}
	return *c.pending, true
}

// FlushPendingAnchor clears the pending intent and requests a persistent
// anchor at its pose. It does nothing when no intent is pending. It is called
// once per frame by the frame synchronizer.
func (c *Coordinator) FlushPendingAnchor(ctx context.Context) {
	if c.pending == nil {
		return
	}
	pose := *c.pending
	c.pending = nil
	epoch := c.epoch

	slog.Debug("Creating anchor", "position", pose.Position)

	loop.Await(c.loop, ctx,
		func(ctx context.Context) (*tracking.Anchor, error) {
			return c.provider.CreateAnchor(ctx, pose, true)
		},
		func(anchor *tracking.Anchor, err error) {
			if err != nil {
				slog.Warn("Anchor creation failed", "position", pose.Position, "error", err)
				c.metrics.RecordFailure(ctx, "create")
				return
			}
			if anchor == nil {
				slog.Warn("Tracking subsystem resolved an empty anchor", "position", pose.Position)
				c.metrics.RecordFailure(ctx, "create")
				return
			}
			c.admit(ctx, anchor, false, epoch)
		},
	)
}

// RestoreAll requests every anchor persisted by earlier sessions and adds them
// to the live set as recovered anchors
func (c *Coordinator) RestoreAll(ctx context.Context) {
	epoch := c.epoch
	slog.Debug("Restoring persistent anchors")

	loop.Await(c.loop, ctx,
		c.provider.RestorePersistentAnchors,
		func(restored []*tracking.Anchor, err error) {
			if err != nil {
				slog.Warn("Anchor restoration failed", "error", err)
				c.metrics.RecordFailure(ctx, "restore")
				return
			}
			added := 0
			for _, anchor := range restored {
				if anchor == nil {
					continue
				}
				if c.admit(ctx, anchor, true, epoch) {
					added++
				}
			}
			slog.Info("Persistent anchors restored", "returned", len(restored), "added", added)
		},
	)
}

// ScheduleRestore runs RestoreAll on the loop after delay. The returned
// function cancels the restoration if it has not started yet.
func (c *Coordinator) ScheduleRestore(ctx context.Context, delay time.Duration) (cancel func() bool) {
	slog.Debug("Scheduling anchor restoration", "delay", delay)
	return c.loop.After(delay, func() {
		if ctx.Err() != nil {
			return
		}
		c.RestoreAll(ctx)
	})
}

// admit adds a resolved anchor to the live set and visualizes it. Anchors
// issued before the latest DeleteAll are deleted instead. It reports whether
// the anchor joined the live set.
func (c *Coordinator) admit(ctx context.Context, anchor *tracking.Anchor, recovered bool, epoch uint64) bool {
	if epoch != c.epoch {
		slog.Info("Deleting anchor resolved after delete-all",
			"id", anchor.ID,
			"recovered", recovered)
		c.provider.DeleteAnchor(anchor)
		c.metrics.RecordDeleted(ctx, 1, len(c.order))
		return false
	}
	if _, ok := c.live[anchor.ID]; ok {
		slog.Debug("Anchor already live", "id", anchor.ID)
		return false
	}

	c.live[anchor.ID] = Live{Anchor: anchor, Recovered: recovered}
	c.order = append(c.order, anchor.ID)

	origin := telemetry.OriginCreated
	if recovered {
		origin = telemetry.OriginRestored
	}
	c.metrics.RecordAdded(ctx, origin, len(c.order))

	slog.Info("Anchor added",
		"id", anchor.ID,
		"persistent", anchor.Persistent,
		"recovered", recovered,
		"position", anchor.Pose.Position)
	c.visualizer.ShowAnchor(anchor, recovered)
	return true
}

// DeleteAll deletes every live anchor and empties the live set. In-flight
// creations and restorations resolving later are deleted on arrival. An
// unflushed request is kept and flushed on the next frame.
func (c *Coordinator) DeleteAll() {
	c.epoch++

	if len(c.order) == 0 {
		return
	}

	snapshot := c.Anchors()
	c.live = make(map[string]Live)
	c.order = nil

	for _, l := range snapshot {
		c.provider.DeleteAnchor(l.Anchor)
	}
	c.metrics.RecordDeleted(context.Background(), len(snapshot), 0)
	slog.Info("All anchors deleted", "count", len(snapshot))
}

// Anchors returns a copy of the live set in the order anchors joined it
func (c *Coordinator) Anchors() []Live {
	out := make([]Live, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.live[id])
	}
	return out
}

// Get returns the live anchor with the given ID
func (c *Coordinator) Get(id string) (Live, bool) {
	l, ok := c.live[id]
	return l, ok
}

// Len returns the number of live anchors
func (c *Coordinator) Len() int {
	return len(c.order)
}
