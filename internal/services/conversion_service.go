// Package services provides the background conversion service.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/notify"
	"github.com/richardsimms/SpeasyTTS/internal/pipeline"
	"github.com/richardsimms/SpeasyTTS/internal/repository"
	"github.com/richardsimms/SpeasyTTS/internal/scheduler"
	"github.com/richardsimms/SpeasyTTS/internal/storage"
	"github.com/richardsimms/SpeasyTTS/internal/utils"
	"github.com/richardsimms/SpeasyTTS/internal/validation"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Executor accepts background tasks.
type Executor interface {
	Submit(name string, task scheduler.Task) (<-chan error, error)
}

// ConversionService accepts conversion requests, runs them in the background
// and keeps a status record for each one.
type ConversionService struct {
	repo         repository.ConversionRepository
	runner       Runner
	store        storage.ArtifactStore
	notifier     notify.Notifier
	exec         Executor
	requirements models.AudioRequirements
	keyPrefix    string
}

// ConversionDeps groups the collaborators of a ConversionService.
type ConversionDeps struct {
	Repo     repository.ConversionRepository
	Runner   Runner
	Store    storage.ArtifactStore
	Notifier notify.Notifier
	Executor Executor
	// Requirements apply to requests that carry none.
	Requirements models.AudioRequirements
	// KeyPrefix is prepended to artifact storage keys.
	KeyPrefix string
}

// NewConversionService creates a conversion service. A nil Notifier logs
// outcomes instead.
func NewConversionService(deps ConversionDeps) *ConversionService {
	n := deps.Notifier
	if n == nil {
		n = notify.LogNotifier{}
	}
	return &ConversionService{
		repo:         deps.Repo,
		runner:       deps.Runner,
		store:        deps.Store,
		notifier:     n,
		exec:         deps.Executor,
		requirements: deps.Requirements.WithDefaults(),
		keyPrefix:    deps.KeyPrefix,
	}
}

// Submit records a pending conversion and schedules it. It returns as soon
// as the record exists; callers poll Get for the outcome.
func (s *ConversionService) Submit(ctx context.Context, req models.ConversionRequest) (*models.Conversion, error) {
	conv, _, err := s.Enqueue(ctx, req)
	return conv, err
}

// Enqueue is Submit that also returns the task's completion channel. The
// channel yields nil when the run recorded an outcome, valid or not.
func (s *ConversionService) Enqueue(ctx context.Context, req models.ConversionRequest) (*models.Conversion, <-chan error, error) {
	if err := validation.ValidateConversionRequest(req).ToError(); err != nil {
		return nil, nil, err
	}

	conv := &models.Conversion{
		ID:      uuid.NewString(),
		Title:   req.Metadata.Title,
		Episode: req.Metadata.Episode,
		Status:  models.ConversionStatusPending,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, nil, apperrors.TranslateRepoError("create conversion", err)
	}

	snapshot := *conv
	done, err := s.exec.Submit("conversion "+conv.ID, func(taskCtx context.Context) error {
		return s.process(taskCtx, snapshot, req)
	})
	if err != nil {
		s.recordFailure(ctx, snapshot, mapSubmitError(err))
		return nil, nil, mapSubmitError(err)
	}

	logger.Info("Accepted conversion %s (%q)", conv.ID, conv.Title)
	return conv, done, nil
}

// Get returns the status record of a conversion.
func (s *ConversionService) Get(ctx context.Context, id string) (*models.Conversion, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.TranslateRepoError("get conversion", err)
	}
	return conv, nil
}

// List returns recent conversions, optionally filtered by status.
func (s *ConversionService) List(ctx context.Context, status models.ConversionStatus, limit int) ([]models.Conversion, error) {
	if status != "" && !status.IsValid() {
		return nil, apperrors.InvalidField("status", fmt.Sprintf("unknown status %q", status))
	}
	list, err := s.repo.List(ctx, repository.ListFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, apperrors.TranslateRepoError("list conversions", err)
	}
	return list, nil
}

// Artifact returns the stored audio of a finished conversion.
func (s *ConversionService) Artifact(ctx context.Context, id string) ([]byte, error) {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.ArtifactKey == nil {
		return nil, apperrors.NotFound("conversion has no artifact")
	}
	data, err := s.store.Get(ctx, *conv.ArtifactKey)
	if err != nil {
		return nil, apperrors.Storage("failed to read artifact").Wrap(err)
	}
	return data, nil
}

func (s *ConversionService) process(ctx context.Context, conv models.Conversion, req models.ConversionRequest) error {
	if err := s.repo.MarkProcessing(ctx, conv.ID); err != nil {
		// The record left pending, so another process already took or failed it.
		logger.Warn("Skipping conversion %s: %v", conv.ID, err)
		return apperrors.TranslateRepoError("start conversion", err)
	}

	reqs := s.requirements
	if req.Requirements != nil {
		reqs = req.Requirements.WithDefaults()
	}

	res, err := s.runner.Run(ctx, pipeline.Request{
		Text:         req.Text,
		Metadata:     req.Metadata,
		Requirements: reqs,
	})
	if err != nil {
		s.recordFailure(ctx, conv, err)
		return err
	}

	key := utils.ArtifactKey(s.keyPrefix, conv.ID, conv.CreatedAt)
	location, err := s.store.Put(ctx, key, res.Audio)
	if err != nil {
		storeErr := apperrors.Storage("failed to store artifact").Wrap(err)
		s.recordFailure(ctx, conv, storeErr)
		return storeErr
	}

	status := models.ConversionStatusCompleted
	if !res.Valid() {
		status = models.ConversionStatusInvalid
	}

	var report string
	if res.Report != nil {
		if data, err := json.Marshal(res.Report); err == nil {
			report = string(data)
		}
	}

	update := repository.CompletionUpdate{
		Status:          status,
		Chunks:          res.Chunks,
		ArtifactKey:     key,
		DurationSeconds: res.Duration().Seconds(),
		SizeBytes:       int64(len(res.Audio)),
		Repaired:        res.Repaired,
		Report:          report,
	}
	if err := s.repo.Complete(context.WithoutCancel(ctx), conv.ID, update); err != nil {
		logger.Error("Failed to record completion of %s: %v", conv.ID, err)
		return apperrors.TranslateRepoError("complete conversion", err)
	}

	s.notify(ctx, notify.Event{
		ConversionID:    conv.ID,
		Status:          status,
		Title:           conv.Title,
		Episode:         conv.Episode,
		Location:        location,
		ArtifactKey:     key,
		Chunks:          res.Chunks,
		DurationSeconds: update.DurationSeconds,
		SizeBytes:       update.SizeBytes,
		Repaired:        res.Repaired,
		Report:          res.Report,
	})
	return nil
}

// recordFailure marks the conversion failed even when ctx is already done.
func (s *ConversionService) recordFailure(ctx context.Context, conv models.Conversion, cause error) {
	ctx = context.WithoutCancel(ctx)
	kind := apperrors.KindOf(cause).String()
	if reason := apperrors.ReasonOf(cause); reason != apperrors.ReasonNone {
		kind += ":" + string(reason)
	}

	if err := s.repo.Fail(ctx, conv.ID, kind, cause.Error()); err != nil {
		logger.Error("Failed to record failure of %s: %v", conv.ID, err)
	}
	s.notify(ctx, notify.Event{
		ConversionID: conv.ID,
		Status:       models.ConversionStatusFailed,
		Title:        conv.Title,
		Episode:      conv.Episode,
		ErrorKind:    kind,
		ErrorMessage: cause.Error(),
	})
}

func (s *ConversionService) notify(ctx context.Context, e notify.Event) {
	e.Timestamp = time.Now().UTC()
	if err := s.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		logger.Warn("Failed to deliver event for %s: %v", e.ConversionID, err)
	}
}
