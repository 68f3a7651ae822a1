package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"templatetracker/internal/dto"
	"templatetracker/internal/model"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. An empty ID gets a random UUID and a zero
// StartedAt is set to now.
func (r *SessionRepository) Create(s *model.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)
	`, s.ID, s.Source, s.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// End marks the session as finished now.
func (r *SessionRepository) End(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// GetByID retrieves a session, or nil if it does not exist.
func (r *SessionRepository) GetByID(id string) (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var (
		s     model.Session
		ended sql.NullTime
	)
	err := r.db.Conn().QueryRow(`
		SELECT id, source, started_at, ended_at FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.Source, &s.StartedAt, &ended)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if ended.Valid {
		s.EndedAt = ended.Time
	}
	return &s, nil
}

func sessionWhere(filter *dto.SessionFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return where, args
	}

	if filter.Source != "" {
		where += " AND s.source = ?"
		args = append(args, filter.Source)
	}
	if !filter.Since.IsZero() {
		where += " AND s.started_at >= ?"
		args = append(args, filter.Since)
	}
	return where, args
}

// GetAll lists sessions, newest first, with their event counts.
func (r *SessionRepository) GetAll(filter *dto.SessionFilter) ([]model.SessionSummary, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := sessionWhere(filter)
	query := `
		SELECT s.id, s.source, s.started_at, s.ended_at,
			(SELECT COUNT(*) FROM track_events e WHERE e.session_id = s.id),
			(SELECT COUNT(*) FROM track_events e WHERE e.session_id = s.id AND e.located = 1),
			(SELECT COUNT(*) FROM snapshots p WHERE p.session_id = s.id)
		FROM sessions s` + where + ` ORDER BY s.started_at DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.SessionSummary
	for rows.Next() {
		var (
			s     model.SessionSummary
			ended sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Source, &s.StartedAt, &ended, &s.Frames, &s.Located, &s.Snapshots); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if ended.Valid {
			s.EndedAt = ended.Time
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetTotalCount returns how many sessions match the filter.
func (r *SessionRepository) GetTotalCount(filter *dto.SessionFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := sessionWhere(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM sessions s`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Delete removes a session and everything recorded for it.
func (r *SessionRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"track_events", "selections", "snapshots"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return tx.Commit()
}
