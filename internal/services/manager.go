package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"templatetracker/internal/config"
	"templatetracker/internal/dto"
	"templatetracker/internal/geometry"
	"templatetracker/internal/logger"
	"templatetracker/internal/metric"
	"templatetracker/internal/model"
	"templatetracker/internal/repository"
	"templatetracker/internal/services/imaging"
	"templatetracker/internal/services/storage"
	"templatetracker/internal/services/tracking"
)

// ErrCommandQueueFull is returned by HandleSelection when the frame loop is
// not keeping up with selection events.
var ErrCommandQueueFull = errors.New("selection queue is full")

const trackEventBatch = 20

// FrameSource delivers frames to the loop.
type FrameSource interface {
	Read(frame *gocv.Mat) error
	Close() error
}

// FrameSink displays processed frames.
type FrameSink interface {
	Show(label string, frame gocv.Mat)
}

// Repositories the manager records a session into.
type Repositories struct {
	Sessions    repository.SessionRepository
	Selections  repository.SelectionRepository
	TrackEvents repository.TrackEventRepository
}

// Manager runs the frame loop: it reads from the source, applies queued
// selection commands between frames, runs the tracking session and hands the
// result to every sink.
type Manager struct {
	source        FrameSource
	sourceName    string
	session       *tracking.Session
	sinks         []FrameSink
	bufferService *storage.BufferService
	repos         Repositories
	metric        *metric.Metric
	logger        *logger.Logger

	commands           chan dto.SelectionEvent
	trackLogEvery      int
	maxCaptureFailures int

	// Loop-owned state.
	sessionID     string
	frameCount    int64
	wasLocated    bool
	pendingEvents []model.TrackEvent

	statusMu sync.RWMutex
	status   dto.TrackerStatus
}

func NewManager(source FrameSource, sourceName string, session *tracking.Session, sinks []FrameSink,
	bufferService *storage.BufferService, repos Repositories, m *metric.Metric, cfg *config.Config, logger *logger.Logger) *Manager {

	queueSize := cfg.CommandQueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	trackLogEvery := cfg.TrackLogInterval
	if trackLogEvery <= 0 {
		trackLogEvery = 1
	}
	maxFailures := cfg.MaxCaptureFailures
	if maxFailures <= 0 {
		maxFailures = 1
	}

	return &Manager{
		source:             source,
		sourceName:         sourceName,
		session:            session,
		sinks:              sinks,
		bufferService:      bufferService,
		repos:              repos,
		metric:             m,
		logger:             logger,
		commands:           make(chan dto.SelectionEvent, queueSize),
		trackLogEvery:      trackLogEvery,
		maxCaptureFailures: maxFailures,
		status: dto.TrackerStatus{
			Source: sourceName,
			State:  tracking.NoTemplate.String(),
		},
	}
}

// HandleSelection validates ev and queues it for the next frame boundary.
// It never blocks.
func (m *Manager) HandleSelection(ev dto.SelectionEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	select {
	case m.commands <- ev:
		return nil
	default:
		m.logger.Warning("Selection queue full, dropping %s event", ev.Type)
		return ErrCommandQueueFull
	}
}

// Status returns a copy of the latest tracking state.
func (m *Manager) Status() dto.TrackerStatus {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()

	status := m.status
	status.Corners = append([]geometry.Point2D(nil), m.status.Corners...)
	if m.status.Template != nil {
		rect := *m.status.Template
		status.Template = &rect
	}
	return status
}

// Run processes frames until ctx is cancelled or the source fails
// MaxCaptureFailures times in a row. Cancellation is checked between frames
// and returns nil; repeated capture failures return the last capture error.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.startSession(); err != nil {
		return err
	}
	defer m.endSession()

	frame := gocv.NewMat()
	defer frame.Close()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Frame loop stopped after %d frames", m.frameCount)
			return nil
		default:
		}

		if err := m.source.Read(&frame); err != nil {
			failures++
			if m.metric != nil {
				m.metric.AddCaptureFailure()
			}
			m.logger.Warning("Capture failed (%d/%d): %v", failures, m.maxCaptureFailures, err)
			if failures >= m.maxCaptureFailures {
				return fmt.Errorf("frame loop: %d consecutive capture failures: %w", failures, err)
			}
			continue
		}
		failures = 0

		m.applyCommands()
		m.processFrame(frame)
	}
}

func (m *Manager) startSession() error {
	s := &model.Session{Source: m.sourceName}
	if m.repos.Sessions != nil {
		if err := m.repos.Sessions.Create(s); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	} else {
		s.ID = uuid.NewString()
	}
	m.sessionID = s.ID

	m.statusMu.Lock()
	m.status.SessionID = s.ID
	m.statusMu.Unlock()

	m.logger.Info("🎬 Tracking session %s started on source %s", s.ID, m.sourceName)
	return nil
}

func (m *Manager) endSession() {
	m.flushTrackEvents()
	if m.repos.Sessions != nil && m.sessionID != "" {
		if err := m.repos.Sessions.End(m.sessionID); err != nil {
			m.logger.Error("Failed to close session %s: %v", m.sessionID, err)
		}
	}
	m.logger.Info("🛑 Tracking session %s ended", m.sessionID)
}

// applyCommands drains queued selection events. It runs on the loop
// goroutine, so the session never sees concurrent calls.
func (m *Manager) applyCommands() {
	for {
		select {
		case ev := <-m.commands:
			m.applySelection(ev)
		default:
			return
		}
	}
}

func (m *Manager) applySelection(ev dto.SelectionEvent) {
	switch ev.Type {
	case dto.SelectionStarted:
		m.session.OnSelectionStarted()
	case dto.SelectionUpdated:
		m.session.OnSelectionUpdated(ev.Rect)
	case dto.SelectionCancelled:
		m.session.OnSelectionCancelled()
	case dto.SelectionFinished:
		if err := m.session.OnSelectionFinished(ev.Rect); err != nil {
			m.logger.Warning("Selection %+v rejected: %v", ev.Rect, err)
			break
		}
		m.recordSelection()
		m.showTemplate()
	}

	if m.metric != nil {
		m.metric.SetHasTemplate(m.session.Tracker().HasTemplate())
	}
}

// showTemplate sends the new template with its keypoints to every sink.
func (m *Manager) showTemplate() {
	preview, err := m.session.Tracker().TemplatePreview()
	if err != nil {
		m.logger.Error("Failed to draw template preview: %v", err)
		return
	}
	defer preview.Close()

	for _, sink := range m.sinks {
		sink.Show("template", preview)
	}
}

func (m *Manager) recordSelection() {
	tracker := m.session.Tracker()
	rect, _ := tracker.TemplateRect()
	m.logger.Info("🎯 Template set at %+v with %d keypoints", rect, tracker.TemplateKeypoints())
	m.wasLocated = false

	if m.repos.Selections == nil {
		return
	}
	if _, err := m.repos.Selections.Insert(&model.Selection{
		SessionID: m.sessionID,
		Rect:      rect,
		Keypoints: tracker.TemplateKeypoints(),
	}); err != nil {
		m.logger.Error("Failed to record selection: %v", err)
	}
}

func (m *Manager) processFrame(frame gocv.Mat) {
	start := time.Now()
	res, err := m.session.Process(frame)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		m.logger.Error("Frame processing failed: %v", err)
		if m.metric != nil {
			m.metric.AddFrame(metric.OutcomeFailedFrame, 0, 0)
		}
		return
	}
	defer res.Frame.Close()

	m.frameCount++
	tracker := m.session.Tracker()
	hasTemplate := tracker.HasTemplate()

	outcome := metric.OutcomeNoTemplate
	if hasTemplate {
		outcome = metric.OutcomeLost
		if res.Located {
			outcome = metric.OutcomeLocated
		}
	}
	if m.metric != nil {
		m.metric.AddProcessingTime(elapsed)
		m.metric.AddFrame(outcome, res.Matches, res.Inliers)
	}

	for _, sink := range m.sinks {
		sink.Show("tracking", res.Frame)
	}

	if res.Located && !m.wasLocated {
		m.snapshot(res.Frame)
	}
	if hasTemplate && res.Located != m.wasLocated {
		if res.Located {
			m.logger.Info("Template acquired at %v (angle %.1f°)", res.Quad.Centroid(), res.Angle)
		} else {
			m.logger.Info("Template lost: %v", res.Failure)
		}
	}
	m.wasLocated = res.Located

	if hasTemplate && m.frameCount%int64(m.trackLogEvery) == 0 {
		m.logTrackEvent(res)
	}

	m.updateStatus(res, tracker)
}

func (m *Manager) snapshot(frame gocv.Mat) {
	if m.bufferService == nil {
		return
	}
	data, err := imaging.EncodeJPEG(frame, 0)
	if err != nil {
		m.logger.Error("Failed to encode snapshot: %v", err)
		return
	}
	m.bufferService.AddSnapshot(data, m.sessionID, "acquired")
}

func (m *Manager) logTrackEvent(res tracking.Result) {
	if m.repos.TrackEvents == nil {
		return
	}

	ev := model.TrackEvent{
		SessionID: m.sessionID,
		Frame:     m.frameCount,
		Located:   res.Located,
		Angle:     res.Angle,
		Matches:   res.Matches,
		Inliers:   res.Inliers,
	}
	if res.Located {
		ev.Center = res.Quad.Centroid()
	}
	if res.Failure != nil {
		ev.Failure = res.Failure.Error()
	}

	m.pendingEvents = append(m.pendingEvents, ev)
	if len(m.pendingEvents) >= trackEventBatch {
		m.flushTrackEvents()
	}
}

func (m *Manager) flushTrackEvents() {
	if len(m.pendingEvents) == 0 || m.repos.TrackEvents == nil {
		return
	}
	if err := m.repos.TrackEvents.InsertBatch(m.pendingEvents); err != nil {
		m.logger.Error("Failed to write %d track events: %v", len(m.pendingEvents), err)
	}
	m.pendingEvents = m.pendingEvents[:0]
}

func (m *Manager) updateStatus(res tracking.Result, tracker *tracking.Tracker) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	m.status.State = tracker.State().String()
	m.status.Width = res.Frame.Cols()
	m.status.Height = res.Frame.Rows()
	m.status.Frames = m.frameCount
	m.status.Located = res.Located
	m.status.Angle = res.Angle
	m.status.Matches = res.Matches
	m.status.Inliers = res.Inliers
	m.status.Failure = ""
	if res.Failure != nil {
		m.status.Failure = res.Failure.Error()
	}

	m.status.Template = nil
	if rect, ok := tracker.TemplateRect(); ok {
		m.status.Template = &rect
	}

	m.status.Corners = m.status.Corners[:0]
	if res.Located {
		m.status.Corners = append(m.status.Corners, res.Quad[:]...)
	}
}
