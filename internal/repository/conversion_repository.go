package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/richardsimms/SpeasyTTS/internal/models"
)

// CompletionUpdate carries the fields written when a run produced audio.
type CompletionUpdate struct {
	Status          models.ConversionStatus // completed or invalid
	Chunks          int
	ArtifactKey     string
	DurationSeconds float64
	SizeBytes       int64
	Repaired        bool
	Report          string // JSON encoded ValidationReport
}

// ListFilter narrows List results.
type ListFilter struct {
	Status models.ConversionStatus
	Limit  int
}

// ConversionRepository defines the data access interface for conversion records.
type ConversionRepository interface {
	Create(ctx context.Context, c *models.Conversion) error
	GetByID(ctx context.Context, id string) (*models.Conversion, error)
	List(ctx context.Context, filter ListFilter) ([]models.Conversion, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, u CompletionUpdate) error
	Fail(ctx context.Context, id, kind, message string) error
	FailStale(ctx context.Context, before time.Time, message string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// conversionRepository implements ConversionRepository using sqlx.
type conversionRepository struct {
	*BaseRepository[models.Conversion]
	now func() time.Time
}

// NewConversionRepository creates a new conversion repository.
func NewConversionRepository(db *sqlx.DB) ConversionRepository {
	return &conversionRepository{
		BaseRepository: NewBaseRepository[models.Conversion](db, "conversions"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new conversion. Timestamps are set when zero.
func (r *conversionRepository) Create(ctx context.Context, c *models.Conversion) error {
	now := r.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Status == "" {
		c.Status = models.ConversionStatusPending
	}

	_, err := r.getQueryable(ctx).NamedExecContext(ctx, `
		INSERT INTO conversions
			(id, title, episode, status, chunks, artifact_key, duration_seconds, size_bytes,
			 repaired, report, error_kind, error_message, created_at, updated_at, completed_at)
		VALUES
			(:id, :title, :episode, :status, :chunks, :artifact_key, :duration_seconds, :size_bytes,
			 :repaired, :report, :error_kind, :error_message, :created_at, :updated_at, :completed_at)`, c)
	return ParseDBError(err)
}

// List returns the most recent conversions, optionally filtered by status.
func (r *conversionRepository) List(ctx context.Context, filter ListFilter) ([]models.Conversion, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	query := "SELECT * FROM conversions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT %d", limit)

	var out []models.Conversion
	if err := r.getQueryable(ctx).SelectContext(ctx, &out, query, args...); err != nil {
		return nil, ParseDBError(err)
	}
	return out, nil
}

// MarkProcessing moves a pending conversion to processing.
func (r *conversionRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, []models.ConversionStatus{models.ConversionStatusPending},
		[]string{"status = ?"}, []any{models.ConversionStatusProcessing})
}

// Complete records a run that produced audio.
func (r *conversionRepository) Complete(ctx context.Context, id string, u CompletionUpdate) error {
	if u.Status != models.ConversionStatusCompleted && u.Status != models.ConversionStatusInvalid {
		return fmt.Errorf("%w: cannot complete with status %q", ErrInvalidTransition, u.Status)
	}
	completedAt := r.now()
	sets := []string{"status = ?", "chunks = ?", "repaired = ?", "completed_at = ?"}
	args := []any{u.Status, u.Chunks, u.Repaired, completedAt}
	addFieldUpdate(&sets, &args, "artifact_key", nonEmpty(u.ArtifactKey))
	addFieldUpdate(&sets, &args, "duration_seconds", &u.DurationSeconds)
	addFieldUpdate(&sets, &args, "size_bytes", &u.SizeBytes)
	addFieldUpdate(&sets, &args, "report", nonEmpty(u.Report))

	return r.transition(ctx, id, activeStatuses, sets, args)
}

// Fail records a run that ended without audio.
func (r *conversionRepository) Fail(ctx context.Context, id, kind, message string) error {
	sets := []string{"status = ?", "completed_at = ?"}
	args := []any{models.ConversionStatusFailed, r.now()}
	addFieldUpdate(&sets, &args, "error_kind", nonEmpty(kind))
	addFieldUpdate(&sets, &args, "error_message", nonEmpty(message))

	return r.transition(ctx, id, activeStatuses, sets, args)
}

// FailStale marks active conversions not updated since before as failed.
// Runs are not resumable, so work interrupted by a restart cannot finish.
func (r *conversionRepository) FailStale(ctx context.Context, before time.Time, message string) (int64, error) {
	now := r.now()
	result, err := r.getQueryable(ctx).ExecContext(ctx, `
		UPDATE conversions
		SET status = ?, error_kind = ?, error_message = ?, updated_at = ?, completed_at = ?
		WHERE status IN (?, ?) AND updated_at < ?`,
		models.ConversionStatusFailed, "interrupted", message, now, now,
		models.ConversionStatusPending, models.ConversionStatusProcessing, before.UTC())
	if err != nil {
		return 0, ParseDBError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, ParseDBError(err)
	}
	return n, nil
}

var activeStatuses = []models.ConversionStatus{models.ConversionStatusPending, models.ConversionStatusProcessing}

// transition applies sets to a record whose status is one of from. A record
// that exists in another status yields ErrInvalidTransition.
func (r *conversionRepository) transition(ctx context.Context, id string, from []models.ConversionStatus, sets []string, args []any) error {
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now())

	placeholders := make([]string, len(from))
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, s)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE conversions SET %s WHERE status IN (%s) AND id = ?",
		strings.Join(sets, ", "), strings.Join(placeholders, ", "))

	q := r.getQueryable(ctx)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return ParseDBError(err)
	}
	if err := requireAffected(result); err != nil {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return fmt.Errorf("%w: conversion %s is not %v", ErrInvalidTransition, id, from)
		}
		return err
	}
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
