package sqlite

import (
	"fmt"
	"slices"
	"time"

	"templatetracker/internal/model"
)

// TrackEventRepository implements repository.TrackEventRepository for SQLite.
type TrackEventRepository struct {
	db *DB
}

func NewTrackEventRepository(db *DB) *TrackEventRepository {
	return &TrackEventRepository{db: db}
}

const insertTrackEvent = `
	INSERT INTO track_events (session_id, frame, located, center_x, center_y, angle, matches, inliers, failure, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func trackEventArgs(ev *model.TrackEvent) []interface{} {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	return []interface{}{
		ev.SessionID, ev.Frame, ev.Located, ev.Center.X, ev.Center.Y,
		ev.Angle, ev.Matches, ev.Inliers, ev.Failure, ev.CreatedAt,
	}
}

func (r *TrackEventRepository) Insert(ev *model.TrackEvent) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertTrackEvent, trackEventArgs(ev)...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert track event: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple events in a single transaction.
func (r *TrackEventRepository) InsertBatch(events []model.TrackEvent) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertTrackEvent)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		if _, err := stmt.Exec(trackEventArgs(&events[i])...); err != nil {
			return fmt.Errorf("failed to insert track event: %w", err)
		}
	}

	return tx.Commit()
}

// GetBySession returns the most recent events of a session in frame order.
// A limit of zero or less returns all of them.
func (r *TrackEventRepository) GetBySession(sessionID string, limit int) ([]model.TrackEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, session_id, frame, located, center_x, center_y, angle, matches, inliers, failure, created_at
		FROM track_events WHERE session_id = ? ORDER BY frame DESC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track events: %w", err)
	}
	defer rows.Close()

	var events []model.TrackEvent
	for rows.Next() {
		var ev model.TrackEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Frame, &ev.Located, &ev.Center.X, &ev.Center.Y,
			&ev.Angle, &ev.Matches, &ev.Inliers, &ev.Failure, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan track event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(events)
	return events, nil
}
