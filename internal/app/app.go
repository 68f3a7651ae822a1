package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"templatetracker/internal/config"
	"templatetracker/internal/handlers"
	"templatetracker/internal/logger"
	"templatetracker/internal/metric"
	"templatetracker/internal/repository/sqlite"
	"templatetracker/internal/routes"
	"templatetracker/internal/services"
	"templatetracker/internal/services/capture"
	"templatetracker/internal/services/storage"
	"templatetracker/internal/services/tracking"
	"templatetracker/internal/services/vision"
	"templatetracker/internal/services/websocket"
)

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	registry      *prometheus.Registry
	repos         handlers.Repositories
	detector      *vision.FeatureDetector
	matcher       *vision.DescriptorMatcher
	session       *tracking.Session
	camera        *capture.Camera
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *services.Manager
}

func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{config: cfg, logger: log}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	a.db, err = sqlite.New(cfg.DatabasePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repos = handlers.Repositories{
		Sessions:    sqlite.NewSessionRepository(a.db),
		Selections:  sqlite.NewSelectionRepository(a.db),
		TrackEvents: sqlite.NewTrackEventRepository(a.db),
		Snapshots:   sqlite.NewSnapshotRepository(a.db),
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metric.New(a.registry, cfg.ProcTimeBuckets)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.camera, err = capture.Open(cfg.VideoSource)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.detector = vision.NewFeatureDetector()
	a.matcher = vision.NewDescriptorMatcher()
	estimator := vision.NewHomographyEstimator(cfg.RansacThreshold, cfg.RansacMaxIters, cfg.RansacConfidence)
	a.session = tracking.NewSession(tracking.NewTracker(a.detector, a.matcher, estimator, cfg.KeepMatches))

	a.bufferService = storage.NewBufferService(cfg.SnapshotDirectory, cfg.SnapshotBufferLimit, a.repos.Snapshots, log)
	a.hubService = websocket.NewHubService(cfg, log)

	a.manager = services.NewManager(a.camera, a.camera.Source(), a.session, []services.FrameSink{a.hubService},
		a.bufferService, services.Repositories{
			Sessions:    a.repos.Sessions,
			Selections:  a.repos.Selections,
			TrackEvents: a.repos.TrackEvents,
		}, m, cfg, log)

	return a, nil
}

// Run serves HTTP and runs the frame loop until ctx is cancelled or the
// loop gives up on the video source.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.bufferService.Run(ctx, a.config.SnapshotFlushInterval)
	}()
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- a.manager.Run(ctx)
	}()

	router := routes.SetupRoutes(a.manager, a.hubService, a.repos, a.registry, a.config, a.logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	a.logger.Info("🚀 Template tracker on http://localhost:%d", a.config.Port)
	a.logger.Info("📷 Video source: %s", a.config.VideoSource)
	a.logger.Info("📁 Snapshots: %s", a.config.SnapshotDirectory)

	var runErr error
	select {
	case <-ctx.Done():
		<-loopErr
	case err := <-loopErr:
		runErr = err
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
		cancel()
		<-loopErr
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
	}
	wg.Wait()
	return runErr
}

// Close releases the video source, the OpenCV objects, the database and
// the log files.
func (a *App) Close() {
	if a.camera != nil {
		a.camera.Close()
	}
	if a.session != nil {
		a.session.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}
	if a.matcher != nil {
		a.matcher.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}
