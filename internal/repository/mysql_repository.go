package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	"github.com/go-sql-driver/mysql"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS table_analyses (
		id VARCHAR(64) NOT NULL,
		source VARCHAR(2048) NOT NULL,
		model VARCHAR(128) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		processing_time_sec DOUBLE NOT NULL,
		is_table BOOLEAN NOT NULL,
		confidence DOUBLE NOT NULL,
		result_json LONGTEXT NOT NULL,
		exports_json TEXT NOT NULL,
		PRIMARY KEY (id),
		INDEX idx_table_analyses_created (created_at)
	) CHARACTER SET utf8mb4`

const selectColumns = `SELECT id, source, model, created_at, processing_time_sec, result_json, exports_json FROM table_analyses`

// MySQLRepository stores analysis history in MySQL
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository connects to dsn, forcing parseTime, and ensures the schema exists
func NewMySQLRepository(ctx context.Context, dsn string) (*MySQLRepository, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid MySQL DSN", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to open database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewInternalError("failed to ping database", errors.Join(ErrRepositoryUnavailable, err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	repo := NewMySQLRepositoryWithDB(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("addr", cfg.Addr).Info("Connected to MySQL analysis history")
	return repo, nil
}

// NewMySQLRepositoryWithDB wraps an open handle
func NewMySQLRepositoryWithDB(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// EnsureSchema creates the table_analyses table if it doesn't exist
func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableQuery); err != nil {
		return apperrors.NewInternalError("failed to create table_analyses table", err)
	}
	return nil
}

func (r *MySQLRepository) Save(ctx context.Context, rec *models.AnalysisRecord) error {
	if rec == nil || rec.ID == "" {
		return apperrors.NewValidationError("record must have an ID", nil)
	}

	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return apperrors.NewInternalError("failed to encode result", err)
	}
	exports := rec.Exports
	if exports == nil {
		exports = []string{}
	}
	exportsJSON, err := json.Marshal(exports)
	if err != nil {
		return apperrors.NewInternalError("failed to encode exports", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO table_analyses (id, source, model, created_at, processing_time_sec, is_table, confidence, result_json, exports_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE result_json = VALUES(result_json), exports_json = VALUES(exports_json)`,
		rec.ID, rec.Source, rec.Model, rec.CreatedAt.UTC(), rec.ProcessingTimeSec,
		rec.Result.IsTable, rec.Result.Confidence, string(resultJSON), string(exportsJSON))
	if err != nil {
		return apperrors.NewInternalError("failed to save analysis", err)
	}
	return nil
}

func (r *MySQLRepository) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("analysis "+id+" not found", ErrAnalysisNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load analysis", err)
	}
	return rec, nil
}

func (r *MySQLRepository) History(ctx context.Context, source string, limit int) ([]*models.AnalysisRecord, error) {
	limit = normalizeLimit(limit)

	var (
		rows *sql.Rows
		err  error
	)
	if source == "" {
		rows, err = r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, selectColumns+` WHERE source = ? ORDER BY created_at DESC LIMIT ?`, source, limit)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query analysis history", err)
	}
	defer rows.Close()

	out := make([]*models.AnalysisRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to read analysis history", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read analysis history", err)
	}
	return out, nil
}

func (r *MySQLRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.AnalysisRecord, error) {
	var (
		rec         models.AnalysisRecord
		resultJSON  []byte
		exportsJSON []byte
	)
	if err := s.Scan(&rec.ID, &rec.Source, &rec.Model, &rec.CreatedAt, &rec.ProcessingTimeSec, &resultJSON, &exportsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, fmt.Errorf("corrupt result_json for %s: %w", rec.ID, err)
	}
	if len(exportsJSON) > 0 {
		if err := json.Unmarshal(exportsJSON, &rec.Exports); err != nil {
			return nil, fmt.Errorf("corrupt exports_json for %s: %w", rec.ID, err)
		}
	}
	if rec.Result.TableData == nil {
		rec.Result.TableData = models.TableData{}
	}
	return &rec, nil
}
