package hittest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/tracking"
	"github.com/stacklok/spatial-anchors/internal/tracking/mocks"
)

type fakeMarkers struct {
	attached []string
	released []Marker
}

func (f *fakeMarkers) AttachMarker(target *tracking.HitTestTarget) Marker {
	f.attached = append(f.attached, target.ID)
	return "marker-" + target.ID
}

func (f *fakeMarkers) ReleaseMarker(marker Marker) {
	f.released = append(f.released, marker)
}

func newTestTracker(t *testing.T) (*Tracker, *mocks.MockTracker, *fakeMarkers, *loop.Loop) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockTracker := mocks.NewMockTracker(ctrl)
	markers := &fakeMarkers{}
	l := loop.New()
	return New(l, mockTracker, markers), mockTracker, markers, l
}

func TestTracker_ConnectActivatesTarget(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, markers, l := newTestTracker(t)
	target := &tracking.HitTestTarget{ID: "ht-right", Handedness: tracking.Right, Pose: tracking.NewPose(0, 0, -1)}

	mockTracker.EXPECT().
		CreateHitTestTarget(gomock.Any(), tracking.Right).
		Return(target, nil)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Right))
	assert.Equal(t, StatePending, tracker.State(tracking.Right))
	_, ok := tracker.Target(tracking.Right)
	assert.False(t, ok, "pending targets are not exposed")

	l.Settle()

	assert.Equal(t, StateActive, tracker.State(tracking.Right))
	got, ok := tracker.Target(tracking.Right)
	require.True(t, ok)
	assert.Same(t, target, got)
	assert.Equal(t, []string{"ht-right"}, markers.attached)
	assert.Equal(t, StateAbsent, tracker.State(tracking.Left))
}

func TestTracker_SecondConnectIsRejected(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, _, l := newTestTracker(t)
	mockTracker.EXPECT().
		CreateHitTestTarget(gomock.Any(), tracking.Left).
		Return(&tracking.HitTestTarget{ID: "ht-1", Handedness: tracking.Left}, nil).
		Times(1)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Left))

	err := tracker.OnControllerConnected(context.Background(), tracking.Left)
	require.ErrorIs(t, err, ErrTargetExists)

	l.Settle()

	err = tracker.OnControllerConnected(context.Background(), tracking.Left)
	require.ErrorIs(t, err, ErrTargetExists, "an active target also blocks a second connect")
}

func TestTracker_UnknownHandedness(t *testing.T) {
	t.Parallel()

	tracker, _, _, _ := newTestTracker(t)
	err := tracker.OnControllerConnected(context.Background(), tracking.Handedness("none"))
	require.Error(t, err)
	assert.Equal(t, StateAbsent, tracker.State(tracking.Handedness("none")))
}

func TestTracker_DisconnectActiveReleasesTargetAndMarker(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, markers, l := newTestTracker(t)
	target := &tracking.HitTestTarget{ID: "ht-left", Handedness: tracking.Left}

	gomock.InOrder(
		mockTracker.EXPECT().CreateHitTestTarget(gomock.Any(), tracking.Left).Return(target, nil),
		mockTracker.EXPECT().DeleteHitTestTarget(target),
	)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Left))
	l.Settle()

	tracker.OnControllerDisconnected(tracking.Left)

	assert.Equal(t, StateAbsent, tracker.State(tracking.Left))
	assert.Equal(t, []Marker{"marker-ht-left"}, markers.released)

	// The slot can be reused after disconnect
	mockTracker.EXPECT().
		CreateHitTestTarget(gomock.Any(), tracking.Left).
		Return(&tracking.HitTestTarget{ID: "ht-left-2", Handedness: tracking.Left}, nil)
	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Left))
	l.Settle()
	got, ok := tracker.Target(tracking.Left)
	require.True(t, ok)
	assert.Equal(t, "ht-left-2", got.ID)
}

func TestTracker_DisconnectAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	tracker, _, markers, _ := newTestTracker(t)
	assert.NotPanics(t, func() { tracker.OnControllerDisconnected(tracking.Right) })
	assert.Empty(t, markers.released)
}

func TestTracker_DisconnectBeforeResolveReleasesLateTarget(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, markers, l := newTestTracker(t)
	release := make(chan struct{})
	late := &tracking.HitTestTarget{ID: "ht-late", Handedness: tracking.Right}

	mockTracker.EXPECT().
		CreateHitTestTarget(gomock.Any(), tracking.Right).
		DoAndReturn(func(context.Context, tracking.Handedness) (*tracking.HitTestTarget, error) {
			<-release
			return late, nil
		})
	mockTracker.EXPECT().DeleteHitTestTarget(late).Times(1)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Right))
	tracker.OnControllerDisconnected(tracking.Right)
	assert.Equal(t, StateAbsent, tracker.State(tracking.Right))

	close(release)
	l.Settle()

	assert.Equal(t, StateAbsent, tracker.State(tracking.Right))
	_, ok := tracker.Target(tracking.Right)
	assert.False(t, ok)
	assert.Empty(t, markers.attached, "a stale target never gets a marker")
}

func TestTracker_ReconnectBeforeStaleResolve(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, _, l := newTestTracker(t)
	releaseFirst := make(chan struct{})
	first := &tracking.HitTestTarget{ID: "ht-first", Handedness: tracking.Left}
	second := &tracking.HitTestTarget{ID: "ht-second", Handedness: tracking.Left}

	gomock.InOrder(
		mockTracker.EXPECT().
			CreateHitTestTarget(gomock.Any(), tracking.Left).
			DoAndReturn(func(context.Context, tracking.Handedness) (*tracking.HitTestTarget, error) {
				<-releaseFirst
				return first, nil
			}),
		mockTracker.EXPECT().
			CreateHitTestTarget(gomock.Any(), tracking.Left).
			Return(second, nil),
	)
	mockTracker.EXPECT().DeleteHitTestTarget(first).Times(1)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Left))
	tracker.OnControllerDisconnected(tracking.Left)
	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Left))

	close(releaseFirst)
	l.Settle()

	got, ok := tracker.Target(tracking.Left)
	require.True(t, ok)
	assert.Same(t, second, got, "the first resolution must not overwrite the newer request")
}

func TestTracker_CreationFailureReturnsToAbsent(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, markers, l := newTestTracker(t)
	mockTracker.EXPECT().
		CreateHitTestTarget(gomock.Any(), tracking.Right).
		Return(nil, tracking.ErrCreationFailed)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Right))
	l.Settle()

	assert.Equal(t, StateAbsent, tracker.State(tracking.Right))
	assert.Empty(t, markers.attached)
}

func TestTracker_ReleaseAll(t *testing.T) {
	t.Parallel()

	tracker, mockTracker, markers, l := newTestTracker(t)
	left := &tracking.HitTestTarget{ID: "l", Handedness: tracking.Left}
	right := &tracking.HitTestTarget{ID: "r", Handedness: tracking.Right}

	mockTracker.EXPECT().CreateHitTestTarget(gomock.Any(), tracking.Left).Return(left, nil)
	mockTracker.EXPECT().CreateHitTestTarget(gomock.Any(), tracking.Right).Return(right, nil)
	mockTracker.EXPECT().DeleteHitTestTarget(left)
	mockTracker.EXPECT().DeleteHitTestTarget(right)

	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Left))
	require.NoError(t, tracker.OnControllerConnected(context.Background(), tracking.Right))
	l.Settle()

	tracker.ReleaseAll()
	assert.Equal(t, StateAbsent, tracker.State(tracking.Left))
	assert.Equal(t, StateAbsent, tracker.State(tracking.Right))
	assert.Len(t, markers.released, 2)
	assert.False(t, errors.Is(nil, ErrTargetExists))
}
