// Package runs persists, archives and publishes optimization runs.
package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Status is the outcome of a stored run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial" // report_partial run with at least one failed backend
	StatusFailed    Status = "failed"
)

// Sources of a run
const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Record represents a stored run
type Record struct {
	ID           string           `json:"id"`
	Mode         string           `json:"mode"`
	Status       Status           `json:"status"`
	Assets       []string         `json:"assets"`
	Source       string           `json:"source"`
	ErrorStage   string           `json:"error_stage,omitempty"`
	ErrorBackend string           `json:"error_backend,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ArchiveKey   string           `json:"archive_key,omitempty"`
	DurationMs   int64            `json:"duration_ms"`
	CreatedAt    time.Time        `json:"created_at"`
	Report       *pipeline.Report `json:"report,omitempty"`
}

// Repository handles run history in the history database
//
// Reports are stored as msgpack blobs. List returns summaries without them.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Save inserts a run
func (r *Repository) Save(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: run id is required", domain.ErrInvalidParameter)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var blob []byte
	if rec.Report != nil {
		var err error
		blob, err = msgpack.Marshal(rec.Report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	}

	_, err := r.db.Exec(`
		INSERT INTO runs
		(id, mode, status, assets, source, error_stage, error_backend, error_message,
		 report, archive_key, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Mode,
		string(rec.Status),
		strings.Join(rec.Assets, ","),
		rec.Source,
		nullString(rec.ErrorStage),
		nullString(rec.ErrorBackend),
		nullString(rec.ErrorMessage),
		blob,
		nullString(rec.ArchiveKey),
		rec.DurationMs,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	r.log.Debug().Str("run_id", rec.ID).Str("status", string(rec.Status)).Msg("Run stored")
	return nil
}

// Get returns a run with its report
func (r *Repository) Get(id string) (*Record, error) {
	var rec Record
	var blob []byte
	var assets string
	var errorStage, errorBackend, errorMessage, archiveKey sql.NullString
	var createdAtUnix int64

	err := r.db.QueryRow(`
		SELECT id, mode, status, assets, source, error_stage, error_backend, error_message,
			   report, archive_key, duration_ms, created_at
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&rec.ID,
		&rec.Mode,
		&rec.Status,
		&assets,
		&rec.Source,
		&errorStage,
		&errorBackend,
		&errorMessage,
		&blob,
		&archiveKey,
		&rec.DurationMs,
		&createdAtUnix,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	rec.Assets = splitAssets(assets)
	rec.ErrorStage = errorStage.String
	rec.ErrorBackend = errorBackend.String
	rec.ErrorMessage = errorMessage.String
	rec.ArchiveKey = archiveKey.String
	rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC()

	if len(blob) > 0 {
		var report pipeline.Report
		if err := msgpack.Unmarshal(blob, &report); err != nil {
			return nil, fmt.Errorf("failed to decode report of run %s: %w", id, err)
		}
		rec.Report = &report
	}

	return &rec, nil
}

// List returns the most recent runs, newest first, without reports
func (r *Repository) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.Query(`
		SELECT id, mode, status, assets, source, error_stage, error_backend, error_message,
			   archive_key, duration_ms, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	recs := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var assets string
		var errorStage, errorBackend, errorMessage, archiveKey sql.NullString
		var createdAtUnix int64

		if err := rows.Scan(
			&rec.ID,
			&rec.Mode,
			&rec.Status,
			&assets,
			&rec.Source,
			&errorStage,
			&errorBackend,
			&errorMessage,
			&archiveKey,
			&rec.DurationMs,
			&createdAtUnix,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.Assets = splitAssets(assets)
		rec.ErrorStage = errorStage.String
		rec.ErrorBackend = errorBackend.String
		rec.ErrorMessage = errorMessage.String
		rec.ArchiveKey = archiveKey.String
		rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// SetArchiveKey records where a run's report was archived
func (r *Repository) SetArchiveKey(id, key string) error {
	result, err := r.db.Exec(`UPDATE runs SET archive_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return fmt.Errorf("failed to update archive key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func splitAssets(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
