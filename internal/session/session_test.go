package session_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/stacklok/spatial-anchors/internal/anchors"
	"github.com/stacklok/spatial-anchors/internal/frame"
	"github.com/stacklok/spatial-anchors/internal/hittest"
	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/session"
	"github.com/stacklok/spatial-anchors/internal/tracking"
	"github.com/stacklok/spatial-anchors/internal/tracking/sim"
)

const (
	restoreDelay     = time.Second
	roomCaptureDelay = 5 * time.Second
)

type shownAnchor struct {
	id        string
	position  tracking.Vec3
	recovered bool
}

type recordingVisualizer struct {
	shown []shownAnchor
}

func (r *recordingVisualizer) ShowAnchor(anchor *tracking.Anchor, recovered bool) {
	r.shown = append(r.shown, shownAnchor{id: anchor.ID, position: anchor.Pose.Position, recovered: recovered})
}

var _ = Describe("Session", func() {
	var (
		clock      *clocktesting.FakeClock
		l          *loop.Loop
		store      sim.AnchorStore
		tracker    *sim.Tracker
		visualizer *recordingVisualizer
		s          *session.Session
		frameNo    uint64
	)

	newSession := func() {
		tracker = sim.New(sim.WithStore(store), sim.WithRoom(
			[]tracking.Plane{{ID: "floor", Orientation: "horizontal"}},
			[]tracking.Mesh{{
				ID:            "mesh-table",
				SemanticLabel: "table",
				Pose:          tracking.NewPose(0, 0, -1),
				Bounds:        tracking.Bounds{Max: tracking.Vec3{X: 0.5, Y: 0.75, Z: 0.5}},
			}},
		))
		visualizer = &recordingVisualizer{}
		s = session.New(l, tracker,
			session.WithSurfaces(tracker),
			session.WithVisualizer(visualizer),
			session.WithRestoreDelay(restoreDelay),
			session.WithRoomCaptureDelay(roomCaptureDelay),
		)
	}

	tick := func() {
		frameNo++
		viewer := tracking.NewPose(0, 1.6, 0)
		s.Tick(ctx, frame.Frame{Number: frameNo, Viewer: &viewer, Time: clock.Now()})
		l.Settle()
	}

	connect := func(h tracking.Handedness) {
		Expect(s.ControllerConnected(ctx, h)).To(Succeed())
		l.Settle()
		Expect(s.HitTestState(h)).To(Equal(hittest.StateActive))
	}

	BeforeEach(func() {
		clock = clocktesting.NewFakeClock(time.Now())
		l = loop.New(loop.WithClock(clock))
		store = sim.NewMemoryStore()
		frameNo = 0
		newSession()
	})

	Context("Placing anchors", func() {
		It("should create one anchor at the hit pose on the next frame", func() {
			p := tracking.NewPose(0.4, 0, -1.2)
			tracker.SetHitPose(tracking.Right, p)
			connect(tracking.Right)

			Expect(s.SelectStart(tracking.Right)).To(BeTrue())
			Expect(s.Anchors()).To(BeEmpty(), "anchors are only created by the frame loop")

			tick()
			Expect(s.Anchors()).To(HaveLen(1))
			live := s.Anchors()[0]
			Expect(live.Anchor.Pose).To(Equal(p))
			Expect(live.Anchor.Persistent).To(BeTrue())
			Expect(live.Recovered).To(BeFalse())
			Expect(visualizer.shown).To(Equal([]shownAnchor{{id: live.Anchor.ID, position: p.Position}}))

			tick()
			tick()
			Expect(s.Anchors()).To(HaveLen(1))
			Expect(visualizer.shown).To(HaveLen(1))
		})

		It("should use only the last select between frames", func() {
			tracker.SetHitPose(tracking.Left, tracking.NewPose(1, 0, 0))
			tracker.SetHitPose(tracking.Right, tracking.NewPose(2, 0, 0))
			connect(tracking.Left)
			connect(tracking.Right)

			Expect(s.SelectStart(tracking.Left)).To(BeTrue())
			Expect(s.SelectStart(tracking.Right)).To(BeTrue())
			tick()

			Expect(s.Anchors()).To(HaveLen(1))
			Expect(s.Anchors()[0].Anchor.Pose.Position).To(Equal(tracking.Vec3{X: 2}))
		})

		It("should ignore select without an active hit-test target", func() {
			Expect(s.SelectStart(tracking.Right)).To(BeFalse())
			tick()
			Expect(s.Anchors()).To(BeEmpty())
			Expect(tracker.Anchors()).To(BeZero())
		})

		It("should not keep a target resolved after the controller disconnected", func() {
			Expect(s.ControllerConnected(ctx, tracking.Left)).To(Succeed())
			Expect(s.HitTestState(tracking.Left)).To(Equal(hittest.StatePending))
			s.ControllerDisconnected(tracking.Left)
			l.Settle()

			Expect(s.HitTestState(tracking.Left)).To(Equal(hittest.StateAbsent))
			Expect(tracker.Targets()).To(BeZero())
			Expect(s.SelectStart(tracking.Left)).To(BeFalse())
		})

		It("should reject a second connect of the same controller", func() {
			connect(tracking.Right)
			Expect(s.ControllerConnected(ctx, tracking.Right)).To(MatchError(hittest.ErrTargetExists))
		})
	})

	Context("Restoring anchors", func() {
		var a1, a2 tracking.Anchor

		BeforeEach(func() {
			a1 = tracking.Anchor{ID: "A1", Pose: tracking.NewPose(1, 0, -1), Persistent: true}
			a2 = tracking.Anchor{ID: "A2", Pose: tracking.NewPose(2, 0, -1), Persistent: true}
			store = sim.NewMemoryStore(a1, a2)
			newSession()
		})

		It("should restore persisted anchors after the settling delay", func() {
			Expect(s.Start(ctx)).To(Succeed())
			l.Settle()
			Expect(s.Anchors()).To(BeEmpty())

			clock.Step(restoreDelay)
			l.Settle()

			Expect(s.Anchors()).To(HaveLen(2))
			for _, live := range s.Anchors() {
				Expect(live.Recovered).To(BeTrue())
			}
			Expect(visualizer.shown).To(ConsistOf(
				shownAnchor{id: "A1", position: a1.Pose.Position, recovered: true},
				shownAnchor{id: "A2", position: a2.Pose.Position, recovered: true},
			))

			for range 5 {
				tick()
			}
			Expect(visualizer.shown).To(HaveLen(2), "ticks never visualize an anchor again")
		})

		It("should keep created and restored anchors apart", func() {
			connect(tracking.Right)
			Expect(s.Start(ctx)).To(Succeed())
			tracker.SetHitPose(tracking.Right, tracking.NewPose(5, 0, 0))
			tick()
			Expect(s.SelectStart(tracking.Right)).To(BeTrue())
			tick()

			clock.Step(restoreDelay)
			l.Settle()

			var created, restored []string
			for _, live := range s.Anchors() {
				if live.Recovered {
					restored = append(restored, live.Anchor.ID)
				} else {
					created = append(created, live.Anchor.ID)
				}
			}
			Expect(created).To(HaveLen(1))
			Expect(restored).To(ConsistOf("A1", "A2"))
			Expect(restored).NotTo(ContainElement(created[0]))
		})

		It("should carry anchors created in one session into the next", func() {
			connect(tracking.Right)
			tracker.SetHitPose(tracking.Right, tracking.NewPose(7, 0, 0))
			tick()
			s.SelectStart(tracking.Right)
			tick()
			s.End()

			newSession()
			Expect(s.Start(ctx)).To(Succeed())
			clock.Step(restoreDelay)
			l.Settle()
			Expect(s.Anchors()).To(HaveLen(3))
		})

		It("should not restore when the session ends before the delay", func() {
			Expect(s.Start(ctx)).To(Succeed())
			s.End()
			clock.Step(restoreDelay)
			l.Settle()
			Expect(s.Anchors()).To(BeEmpty())
		})

		It("should refuse to start twice", func() {
			Expect(s.Start(ctx)).To(Succeed())
			Expect(s.Start(ctx)).To(MatchError(session.ErrAlreadyStarted))
			Expect(s.Running()).To(BeTrue())
			s.End()
			Expect(s.Running()).To(BeFalse())
		})
	})

	Context("Deleting anchors", func() {
		It("should delete every anchor on squeeze", func() {
			store = sim.NewMemoryStore(tracking.Anchor{ID: "A1", Pose: tracking.NewPose(1, 0, 0), Persistent: true})
			newSession()
			Expect(s.Start(ctx)).To(Succeed())
			clock.Step(restoreDelay)
			l.Settle()
			connect(tracking.Right)
			tick()
			s.SelectStart(tracking.Right)
			tick()
			Expect(s.Anchors()).To(HaveLen(2))

			s.SqueezeStart(tracking.Left)
			Expect(s.Anchors()).To(BeEmpty())
			Expect(tracker.Anchors()).To(BeZero())

			persisted, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted).To(BeEmpty())

			s.SqueezeStart(tracking.Left)
			Expect(s.Anchors()).To(BeEmpty())
		})
	})

	Context("Room capture", func() {
		It("should initiate a room capture when no plane was detected", func() {
			Expect(s.Start(ctx)).To(Succeed())
			clock.Step(roomCaptureDelay)
			l.Settle()
			Expect(tracker.RoomCaptures()).To(Equal(1))

			tick()
			Expect(tracker.PlaneCount()).To(Equal(1))
			labels := s.Labels()
			Expect(labels).To(HaveLen(1))
			Expect(labels[0].Text).To(Equal("table"))
			Expect(labels[0].Position).To(Equal(tracking.Vec3{X: 0, Y: 0.75, Z: -1}))
		})

		It("should skip the room capture when planes were detected", func() {
			tracker.AddPlane(tracking.Plane{ID: "wall", Orientation: "vertical"})
			Expect(s.Start(ctx)).To(Succeed())
			tick()

			clock.Step(roomCaptureDelay)
			l.Settle()
			Expect(tracker.RoomCaptures()).To(BeZero())
		})

		It("should never capture when disabled", func() {
			s = session.New(l, tracker, session.WithSurfaces(tracker), session.WithRoomCaptureDelay(0))
			Expect(s.Start(ctx)).To(Succeed())
			clock.Step(time.Minute)
			l.Settle()
			Expect(tracker.RoomCaptures()).To(BeZero())
		})
	})

	Context("Frames", func() {
		It("should move the UI group with the viewer", func() {
			tick()
			Expect(s.UIPose().Position).To(Equal(tracking.Vec3{Y: 1.6}))
		})

		It("should snapshot state from another goroutine", func() {
			runCtx, stop := context.WithCancel(ctx)
			defer stop()
			go func() {
				defer GinkgoRecover()
				_ = l.Run(runCtx)
			}()

			connected := make(chan error, 1)
			l.Post(func() { connected <- s.ControllerConnected(runCtx, tracking.Right) })
			Expect(<-connected).To(Succeed())

			Eventually(func(g Gomega) {
				snap, err := s.Inspect(runCtx)
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(snap.ID).To(Equal(s.ID()))
				g.Expect(snap.HitTest[tracking.Right]).To(Equal(hittest.StateActive))
				g.Expect(snap.HitTest[tracking.Left]).To(Equal(hittest.StateAbsent))
			}).Should(Succeed())
		})
	})
})

var _ anchors.Visualizer = (*recordingVisualizer)(nil)
