package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"cmctracker/internal/fetcher"
	"cmctracker/internal/summary"
)

const (
	selectActiveSessionSQL = `SELECT id, snapshots
    FROM tracker_sessions
    WHERE market_key = $1
      AND status = 'active'
    ORDER BY started_at DESC
    LIMIT 1;`

	insertSessionSQL = `INSERT INTO tracker_sessions (
        market_key,
        status,
        snapshots,
        started_at
    ) VALUES (
        $1,'active',$2,$3
    )
    RETURNING id;`

	archiveSessionSQL = `UPDATE tracker_sessions
    SET status = 'archived', archived_at = $2
    WHERE id = $1;`

	updateSnapshotsSQL = `UPDATE tracker_sessions
    SET snapshots = $2
    WHERE id = $1;`

	writeResultSQL = `UPDATE tracker_sessions
    SET result = $2
    WHERE id = $1;`

	selectSnapshotsSQL = `SELECT snapshots
    FROM tracker_sessions
    WHERE market_key = $1
      AND status = 'active'
    ORDER BY started_at DESC
    LIMIT 1;`
)

// PostgresStore keeps the snapshot sequence as one JSONB document per session
// row, keyed by market pair so concurrent sessions never share a partition.
type PostgresStore struct {
	pool      *pgxpool.Pool
	marketKey string
	logger    zerolog.Logger

	sessionID int64
	opened    bool
	snaps     []fetcher.Snapshot
}

// NewPostgresStore wires a pgx pool into a document-backed store.
func NewPostgresStore(pool *pgxpool.Pool, marketKey string, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:      pool,
		marketKey: marketKey,
		logger:    logger.With().Str("component", "pg_archive").Logger(),
	}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Open implements Store. Fresh mode archives any prior active session row
// before inserting a new one, so old data is always preserved.
func (s *PostgresStore) Open(ctx context.Context, resume bool) ([]fetcher.Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	s.snaps = nil

	var priorID int64
	var priorDoc []byte
	scanErr := pool.QueryRow(ctx, selectActiveSessionSQL, s.marketKey).Scan(&priorID, &priorDoc)
	switch {
	case scanErr == nil:
		if resume {
			if err := json.Unmarshal(priorDoc, &s.snaps); err != nil {
				s.logger.Error().Err(err).Msg("failed to decode archived session document; starting empty")
				s.snaps = nil
			} else {
				s.sessionID = priorID
				s.opened = true
				return s.Snapshots(), nil
			}
		}
		s.logger.Warn().Int64("session_id", priorID).Msg("active session already present; archiving and starting fresh")
		if _, err := pool.Exec(ctx, archiveSessionSQL, priorID, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("archive prior session: %w", err)
		}
	case errors.Is(scanErr, pgx.ErrNoRows):
		// no prior session
	default:
		return nil, fmt.Errorf("query active session: %w", scanErr)
	}

	doc, err := marshalSnapshots(nil)
	if err != nil {
		return nil, err
	}
	if err := pool.QueryRow(ctx, insertSessionSQL, s.marketKey, doc, time.Now().UTC()).Scan(&s.sessionID); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.opened = true
	return s.Snapshots(), nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) ([]fetcher.Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var doc []byte
	scanErr := pool.QueryRow(ctx, selectSnapshotsSQL, s.marketKey).Scan(&doc)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return nil, nil
	}
	if scanErr != nil {
		return nil, fmt.Errorf("query session snapshots: %w", scanErr)
	}

	var snaps []fetcher.Snapshot
	if err := json.Unmarshal(doc, &snaps); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}
	return snaps, nil
}

// Append implements Store; the whole sequence document is rewritten.
func (s *PostgresStore) Append(ctx context.Context, snap fetcher.Snapshot) error {
	if !s.opened {
		return ErrNotOpen
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	s.snaps = append(s.snaps, snap)

	doc, err := marshalSnapshots(s.snaps)
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, updateSnapshotsSQL, s.sessionID, doc); execErr != nil {
		return fmt.Errorf("update session snapshots: %w", execErr)
	}
	return nil
}

// Snapshots implements Store.
func (s *PostgresStore) Snapshots() []fetcher.Snapshot {
	out := make([]fetcher.Snapshot, len(s.snaps))
	copy(out, s.snaps)
	return out
}

// WriteResult implements Store.
func (s *PostgresStore) WriteResult(ctx context.Context, delta summary.Delta) error {
	if !s.opened {
		return ErrNotOpen
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	doc, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if _, execErr := pool.Exec(ctx, writeResultSQL, s.sessionID, doc); execErr != nil {
		return fmt.Errorf("write session result: %w", execErr)
	}
	return nil
}

// Rotate implements Store, flipping the session row to archived.
func (s *PostgresStore) Rotate(ctx context.Context) error {
	if !s.opened {
		return nil
	}
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, archiveSessionSQL, s.sessionID, time.Now().UTC()); execErr != nil {
		return fmt.Errorf("archive session: %w", execErr)
	}

	s.opened = false
	return nil
}

func marshalSnapshots(snaps []fetcher.Snapshot) ([]byte, error) {
	if snaps == nil {
		snaps = []fetcher.Snapshot{}
	}
	doc, err := json.Marshal(snaps)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshots: %w", err)
	}
	return doc, nil
}

var _ Store = (*PostgresStore)(nil)
