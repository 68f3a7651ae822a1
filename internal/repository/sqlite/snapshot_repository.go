package sqlite

import (
	"database/sql"
	"fmt"

	"templatetracker/internal/model"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Insert(snap *model.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (session_id, filename, filepath, filesize, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, snap.SessionID, snap.Filename, snap.FilePath, snap.FileSize, snap.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

func (r *SnapshotRepository) GetBySession(sessionID string) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, session_id, filename, filepath, filesize, timestamp
		FROM snapshots WHERE session_id = ? ORDER BY timestamp
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Filename, &s.FilePath, &s.FileSize, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// GetByFilename retrieves a snapshot by its filename, or nil if unknown.
func (r *SnapshotRepository) GetByFilename(filename string) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s model.Snapshot
	err := r.db.Conn().QueryRow(`
		SELECT id, session_id, filename, filepath, filesize, timestamp
		FROM snapshots WHERE filename = ?
	`, filename).Scan(&s.ID, &s.SessionID, &s.Filename, &s.FilePath, &s.FileSize, &s.Timestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &s, nil
}
