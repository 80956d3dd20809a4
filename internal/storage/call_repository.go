package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"

	"github.com/fleveque/webacquire/internal/model"
)

// ErrNotFound is returned when a call record doesn't exist.
// Callers check with eris.Is(err, ErrNotFound).
var ErrNotFound = eris.New("call record not found")

// CallStats is one row of the aggregated ledger, grouped by kind and outcome.
type CallStats struct {
	Kind          model.CallKind `db:"kind" json:"kind"`
	Success       bool           `db:"success" json:"success"`
	Count         int64          `db:"count" json:"count"`
	AvgDurationMs float64        `db:"avg_duration_ms" json:"avg_duration_ms"`
}

// CallRepository persists one row per outbound proxy or extraction call.
// Go interfaces are implicit: the SQLite repository and the no-op one both
// satisfy it, so the orchestrator never knows whether the ledger is on.
type CallRepository interface {
	Create(ctx context.Context, call *model.CallRecord) error
	GetByID(ctx context.Context, id int64) (*model.CallRecord, error)
	Count(ctx context.Context) (int64, error)
	CountByRequest(ctx context.Context, requestID string) (int64, error)
	Stats(ctx context.Context, since time.Time) ([]CallStats, error)
	ListRecent(ctx context.Context, limit int) ([]model.CallRecord, error)
}

type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates a SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Create(ctx context.Context, call *model.CallRecord) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now()
	}
	// Timestamps compare as text in SQLite, so they are always stored in UTC.
	call.CreatedAt = call.CreatedAt.UTC()

	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO calls (request_id, kind, target, provider, model, success, status_code, duration_ms, error_message, created_at)
		VALUES (:request_id, :kind, :target, :provider, :model, :success, :status_code, :duration_ms, :error_message, :created_at)
	`, call)
	if err != nil {
		return eris.Wrap(err, "creating call record")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "getting last insert id")
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) GetByID(ctx context.Context, id int64) (*model.CallRecord, error) {
	var call model.CallRecord
	err := r.db.GetContext(ctx, &call, "SELECT * FROM calls WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "getting call %d", id)
	}
	return &call, nil
}

func (r *sqliteCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM calls")
	return count, err
}

func (r *sqliteCallRepository) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM calls WHERE request_id = ?", requestID)
	return count, err
}

func (r *sqliteCallRepository) Stats(ctx context.Context, since time.Time) ([]CallStats, error) {
	var stats []CallStats
	err := r.db.SelectContext(ctx, &stats, `
		SELECT kind, success, COUNT(*) AS count, COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		FROM calls
		WHERE created_at >= ?
		GROUP BY kind, success
		ORDER BY kind, success DESC
	`, since.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "aggregating call stats")
	}
	return stats, nil
}

func (r *sqliteCallRepository) ListRecent(ctx context.Context, limit int) ([]model.CallRecord, error) {
	var calls []model.CallRecord
	err := r.db.SelectContext(ctx, &calls,
		"SELECT * FROM calls ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, eris.Wrap(err, "listing recent calls")
	}
	return calls, nil
}

// nopCallRepository is used when storage.database_path is empty. It still counts
// rows in memory so the stats endpoint reports something useful.
type nopCallRepository struct {
	mu    sync.Mutex
	count int64
}

// NewNopCallRepository returns a CallRepository that keeps nothing.
func NewNopCallRepository() CallRepository {
	return &nopCallRepository{}
}

func (n *nopCallRepository) Create(_ context.Context, _ *model.CallRecord) error {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
	return nil
}

func (n *nopCallRepository) GetByID(_ context.Context, _ int64) (*model.CallRecord, error) {
	return nil, ErrNotFound
}

func (n *nopCallRepository) Count(_ context.Context) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count, nil
}

func (n *nopCallRepository) CountByRequest(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (n *nopCallRepository) Stats(_ context.Context, _ time.Time) ([]CallStats, error) {
	return nil, nil
}

func (n *nopCallRepository) ListRecent(_ context.Context, _ int) ([]model.CallRecord, error) {
	return nil, nil
}
