package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"templatetracker/internal/dto"
	"templatetracker/internal/logger"
	"templatetracker/internal/model"
	"templatetracker/internal/repository"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// BufferService keeps encoded snapshots in memory and writes them to disk
// in batches. Snapshots past the buffer limit are dropped until the next
// flush.
type BufferService struct {
	snapshotsDir string
	snapshots    []dto.BufferedSnapshot
	bufferLimit  int
	repo         repository.SnapshotRepository
	logger       *logger.Logger
	mu           sync.Mutex
}

// NewBufferService creates a buffer. repo may be nil, in which case files are
// written without being recorded.
func NewBufferService(snapshotsDir string, bufferLimit int, repo repository.SnapshotRepository, logger *logger.Logger) *BufferService {
	return &BufferService{
		snapshotsDir: snapshotsDir,
		bufferLimit:  bufferLimit,
		snapshots:    make([]dto.BufferedSnapshot, 0, bufferLimit),
		repo:         repo,
		logger:       logger,
	}
}

// Run flushes every flushInterval seconds until ctx is done, then flushes
// once more.
func (s *BufferService) Run(ctx context.Context, flushInterval int) {
	if flushInterval <= 0 {
		flushInterval = 30
	}
	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushSnapshots()
		case <-ctx.Done():
			s.FlushSnapshots()
			return
		}
	}
}

// AddSnapshot queues a JPEG. It reports false when the buffer is full.
func (s *BufferService) AddSnapshot(data []byte, sessionID, label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) >= s.bufferLimit {
		s.logger.Warning("Snapshot buffer full (%d), dropping %s", s.bufferLimit, label)
		return false
	}

	s.snapshots = append(s.snapshots, dto.BufferedSnapshot{
		Timestamp: time.Now().Format(timestampLayout),
		SessionID: sessionID,
		Label:     label,
		Data:      data,
	})
	s.logger.Debug("Snapshot buffer size: %d/%d", len(s.snapshots), s.bufferLimit)
	return true
}

// Len returns the number of snapshots waiting to be flushed.
func (s *BufferService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// FlushSnapshots writes every buffered snapshot to disk and returns how many
// were written.
func (s *BufferService) FlushSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.snapshotsDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	written := 0
	for _, snap := range s.snapshots {
		filename := snapshotFilename(snap)
		fullpath := filepath.Join(s.snapshotsDir, filename)

		if err := os.WriteFile(fullpath, snap.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}
		written++

		if s.repo == nil {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, snap.Timestamp, time.Local)
		if err != nil {
			ts = time.Now()
		}
		if _, err := s.repo.Insert(&model.Snapshot{
			SessionID: snap.SessionID,
			Filename:  filename,
			FilePath:  fullpath,
			FileSize:  int64(len(snap.Data)),
			Timestamp: ts,
		}); err != nil {
			s.logger.Error("Error recording snapshot %s: %v", filename, err)
		}
	}

	s.logger.Info("Flushed %d snapshots to disk", written)
	s.snapshots = s.snapshots[:0]
	return written
}

func snapshotFilename(snap dto.BufferedSnapshot) string {
	session := snap.SessionID
	if len(session) > 8 {
		session = session[:8]
	}
	return fmt.Sprintf("%s_%s_%s.jpg", snap.Timestamp, session, snap.Label)
}
