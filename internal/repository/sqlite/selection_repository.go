package sqlite

import (
	"fmt"
	"time"

	"templatetracker/internal/model"
)

// SelectionRepository implements repository.SelectionRepository for SQLite.
type SelectionRepository struct {
	db *DB
}

func NewSelectionRepository(db *DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

func (r *SelectionRepository) Insert(sel *model.Selection) (int64, error) {
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now()
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO selections (session_id, x_min, y_min, x_max, y_max, keypoints, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sel.SessionID, sel.Rect.XMin, sel.Rect.YMin, sel.Rect.XMax, sel.Rect.YMax, sel.Keypoints, sel.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert selection: %w", err)
	}

	return result.LastInsertId()
}

// GetBySession returns a session's selections in the order they were made.
func (r *SelectionRepository) GetBySession(sessionID string) ([]model.Selection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, session_id, x_min, y_min, x_max, y_max, keypoints, created_at
		FROM selections WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	var selections []model.Selection
	for rows.Next() {
		var sel model.Selection
		if err := rows.Scan(&sel.ID, &sel.SessionID, &sel.Rect.XMin, &sel.Rect.YMin, &sel.Rect.XMax, &sel.Rect.YMax, &sel.Keypoints, &sel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		selections = append(selections, sel)
	}

	return selections, rows.Err()
}
