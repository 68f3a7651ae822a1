package repository

import (
	"templatetracker/internal/dto"
	"templatetracker/internal/model"
)

// SessionRepository defines the interface for tracking session operations.
type SessionRepository interface {
	// Create stores s, assigning a new ID when s.ID is empty.
	Create(s *model.Session) error
	End(id string) error

	GetByID(id string) (*model.Session, error)
	GetAll(filter *dto.SessionFilter) ([]model.SessionSummary, error)
	GetTotalCount(filter *dto.SessionFilter) (int, error)

	Delete(id string) error
}

// SelectionRepository defines the interface for template selections.
type SelectionRepository interface {
	Insert(sel *model.Selection) (int64, error)
	GetBySession(sessionID string) ([]model.Selection, error)
}

// TrackEventRepository defines the interface for the per-frame track log.
type TrackEventRepository interface {
	Insert(ev *model.TrackEvent) (int64, error)
	InsertBatch(events []model.TrackEvent) error
	GetBySession(sessionID string, limit int) ([]model.TrackEvent, error)
}

// SnapshotRepository defines the interface for saved snapshot metadata.
type SnapshotRepository interface {
	Insert(snap *model.Snapshot) (int64, error)
	GetBySession(sessionID string) ([]model.Snapshot, error)
	GetByFilename(filename string) (*model.Snapshot, error)
}
