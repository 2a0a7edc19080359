package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/spatial-anchors/internal/anchors"
	"github.com/stacklok/spatial-anchors/internal/api"
	"github.com/stacklok/spatial-anchors/internal/config"
	"github.com/stacklok/spatial-anchors/internal/frame"
	"github.com/stacklok/spatial-anchors/internal/loop"
	"github.com/stacklok/spatial-anchors/internal/otel"
	"github.com/stacklok/spatial-anchors/internal/session"
	"github.com/stacklok/spatial-anchors/internal/telemetry"
	"github.com/stacklok/spatial-anchors/internal/tracking/sim"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second // must exceed serverRequestTimeout
	serverIdleTimeout      = 60 * time.Second
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulated anchor session",
		Long: `Run an anchor session against the simulated tracking subsystem.

Controller input and surface detections are read from a script file (--script).
Persistent anchors are stored in the file configured by tracking.storePath and
are restored when the next session starts. With --address the session state is
served over HTTP while the session runs.`,
		RunE: runSession,
	}
	cmd.Flags().String("script", "", "Path to a session script (YAML format)")
	cmd.Flags().String("address", "", "Address of the status server, disabled when empty")
	cmd.Flags().Uint64("frames", 0, "Stop after this many frames, overrides the script")
	return cmd
}

func runSession(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scriptPath, _ := cmd.Flags().GetString("script")
	address, _ := cmd.Flags().GetString("address")
	frames, _ := cmd.Flags().GetUint64("frames")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	script := &Script{}
	if scriptPath != "" {
		script, err = LoadScript(scriptPath)
		if err != nil {
			return err
		}
		slog.Info("Loaded session script", "path", scriptPath, "events", len(script.Events))
	}
	if frames == 0 {
		frames = script.Frames
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	l := loop.New()
	sess, tracker, err := newSimSession(cfg, script, l, tel)
	if err != nil {
		return err
	}

	ctx, span := otel.StartSpan(ctx, tel.Tracer(), "session.run",
		trace.WithAttributes(otel.AttrSessionID.String(sess.ID())))
	defer func() { otel.Finish(span, err) }()

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = l.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	started := make(chan error, 1)
	l.Post(func() { started <- sess.Start(ctx) })
	if err := <-started; err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	var server *http.Server
	if address != "" {
		server, err = startStatusServer(address, sess, tel)
		if err != nil {
			return err
		}
	}

	count := driveFrames(ctx, l, sess, NewDriver(script, sess, tracker), script, cfg.Session.GetFrameInterval(), frames)
	span.SetAttributes(otel.AttrFrameCount.Int64(int64(count)))

	var live []anchors.Live
	ended := make(chan struct{})
	l.Post(func() {
		live = sess.Anchors()
		span.SetAttributes(otel.AttrAnchorCount.Int(len(live)))
		sess.End()
		close(ended)
	})
	<-ended

	if err := printAnchors(cmd.OutOrStdout(), live); err != nil {
		return fmt.Errorf("failed to print anchors: %w", err)
	}

	if server != nil {
		slog.Info("Shutting down status server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Status server forced to shutdown", "error", err)
			return err
		}
	}

	slog.Info("Session run complete", "session", sess.ID(), "frames", count)
	return nil
}

func newSimSession(
	cfg *config.Config, script *Script, l *loop.Loop, tel *telemetry.Telemetry,
) (*session.Session, *sim.Tracker, error) {
	anchorMetrics, err := telemetry.NewAnchorMetrics(tel.MeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create anchor metrics: %w", err)
	}
	frameMetrics, err := telemetry.NewFrameMetrics(tel.MeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create frame metrics: %w", err)
	}

	opts := append(script.SimOptions(),
		sim.WithLatency(cfg.Tracking.GetLatency()),
		sim.WithStore(sim.NewFileStore(cfg.Tracking.GetStorePath())),
	)
	tracker := sim.New(opts...)

	sess := session.New(l, tracker,
		session.WithSurfaces(tracker),
		session.WithRestoreDelay(cfg.Session.GetRestoreDelay()),
		session.WithRoomCaptureDelay(cfg.Session.GetRoomCaptureDelay()),
		session.WithAnchorMetrics(anchorMetrics),
		session.WithFrameMetrics(frameMetrics),
	)
	return sess, tracker, nil
}

// driveFrames ticks the session at the frame interval until ctx is done, the
// frame limit is reached or the script ends the session. It returns the number of frames run.
func driveFrames(
	ctx context.Context, l *loop.Loop, sess *session.Session, driver *Driver,
	script *Script, interval time.Duration, limit uint64,
) uint64 {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	viewer := script.ViewerPose()
	var number uint64
	for {
		select {
		case <-ctx.Done():
			slog.Info("Session interrupted", "frames", number)
			return number
		case now := <-ticker.C:
			number++
			n := number
			done := make(chan bool, 1)
			l.Post(func() {
				ended := driver.Apply(ctx, n)
				sess.Tick(ctx, frame.Frame{Number: n, Viewer: &viewer, Time: now})
				done <- ended
			})
			if <-done {
				slog.Info("Script ended the session", "frame", n)
				return number
			}
			if limit > 0 && number >= limit {
				return number
			}
		}
	}
}

func startStatusServer(address string, sess *session.Session, tel *telemetry.Telemetry) (*http.Server, error) {
	statusMetrics, err := telemetry.NewStatusMetrics(tel.MeterProvider(), sess.ID())
	if err != nil {
		return nil, err
	}

	router := api.NewServer(sess,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			statusMetrics.Middleware,
			api.LoggingMiddleware,
		),
		api.WithMetricsHandler(tel.MetricsHandler()),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      otelhttp.NewHandler(router, "status", otelhttp.WithTracerProvider(tel.TracerProvider())),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Status server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server failed", "error", err)
		}
	}()
	return server, nil
}

// printAnchors renders the live anchors of an ended session as a table
func printAnchors(w io.Writer, live []anchors.Live) error {
	table := tablewriter.NewWriter(w)
	table.Header("Anchor", "Position", "Persistent", "Origin")
	for _, a := range live {
		origin := "created"
		if a.Recovered {
			origin = "restored"
		}
		if err := table.Append(a.Anchor.ID, a.Anchor.Pose.Position.String(), strconv.FormatBool(a.Anchor.Persistent), origin); err != nil {
			return err
		}
	}
	return table.Render()
}
