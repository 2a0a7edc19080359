package session

import (
	"context"
	"fmt"

	"github.com/stacklok/spatial-anchors/internal/hittest"
	"github.com/stacklok/spatial-anchors/internal/tracking"
)

// AnchorView is the read-only view of a live anchor
type AnchorView struct {
	ID         string        `json:"id"`
	Position   tracking.Vec3 `json:"position"`
	Persistent bool          `json:"persistent"`
	Recovered  bool          `json:"recovered"`
}

// LabelView is the read-only view of a semantic label
type LabelView struct {
	MeshID   string        `json:"meshId"`
	Text     string        `json:"text"`
	Position tracking.Vec3 `json:"position"`
}

// Snapshot is a consistent copy of session state taken on the loop
type Snapshot struct {
	ID        string                                `json:"id"`
	Running   bool                                  `json:"running"`
	Frame     uint64                                `json:"frame"`
	Anchors   []AnchorView                          `json:"anchors"`
	HitTest   map[tracking.Handedness]hittest.State `json:"hitTest"`
	Labels    []LabelView                           `json:"labels"`
	Pending   bool                                  `json:"pendingRequest"`
	UIUpdates uint64                                `json:"uiUpdates"`
}

// Snapshot copies the session state. It must be called on the loop.
func (s *Session) Snapshot() Snapshot {
	_, pending := s.anchors.Pending()
	snap := Snapshot{
		ID:        s.id,
		Running:   s.running,
		Frame:     s.frames.LastFrame(),
		Anchors:   []AnchorView{},
		HitTest:   make(map[tracking.Handedness]hittest.State, len(tracking.Handednesses)),
		Labels:    []LabelView{},
		Pending:   pending,
		UIUpdates: s.ui.Updates(),
	}
	for _, live := range s.anchors.Anchors() {
		snap.Anchors = append(snap.Anchors, AnchorView{
			ID:         live.Anchor.ID,
			Position:   live.Anchor.Pose.Position,
			Persistent: live.Anchor.Persistent,
			Recovered:  live.Recovered,
		})
	}
	for _, h := range tracking.Handednesses {
		snap.HitTest[h] = s.hitTest.State(h)
	}
	for _, l := range s.board.Labels() {
		snap.Labels = append(snap.Labels, LabelView{MeshID: l.MeshID, Text: l.Text, Position: l.Position})
	}
	return snap
}

// Inspect takes a Snapshot on the loop from any goroutine. The loop must be running.
func (s *Session) Inspect(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	s.loop.Post(func() {
		result <- s.Snapshot()
	})
	select {
	case snap := <-result:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, fmt.Errorf("failed to inspect session: %w", ctx.Err())
	}
}
