package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tutorcast/api/internal/assembly"
	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/model"
)

// JobService is the part of the compile service the worker drives
type JobService interface {
	RunJob(ctx context.Context, jobID string, req *model.CompileRequest, step func(progress int, msg string)) (*model.CompileResultResponse, error)
	UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error
	CompleteJob(ctx context.Context, jobID string, result interface{}) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
	IsCanceled(ctx context.Context, jobID string) bool
}

// JobBroadcaster relays job progress to WebSocket subscribers
type JobBroadcaster interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// Publisher materializes a compiled project. SinkFor picks the destination
// of one project.
type Publisher struct {
	Source  assembly.Source
	SinkFor func(projectID string) assembly.Sink
}

// CompileWorker processes compile jobs
type CompileWorker struct {
	compileService JobService
	hub            JobBroadcaster
	publisher      *Publisher
	log            logrus.FieldLogger
}

// NewCompileWorker creates a new compile worker
func NewCompileWorker(compileService JobService, hub JobBroadcaster, publisher *Publisher, log logrus.FieldLogger) *CompileWorker {
	return &CompileWorker{
		compileService: compileService,
		hub:            hub,
		publisher:      publisher,
		log:            log,
	}
}

// ProcessTask handles compile task processing
func (w *CompileWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w: %w", err, asynq.SkipRetry)
	}

	jobID := taskPayload.JobID
	log := w.log.WithField("jobId", jobID)
	log.Info("starting compile job")

	if w.compileService.IsCanceled(ctx, jobID) {
		log.Info("compile job canceled before start")
		return nil
	}

	var req model.CompileRequest
	if err := json.Unmarshal(taskPayload.Payload, &req); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal compile payload: %w: %w", err, asynq.SkipRetry)
	}

	w.updateProgress(ctx, jobID, 5, "Validating trace...")
	result, err := w.compileService.RunJob(ctx, jobID, &req, func(progress int, msg string) {
		w.updateProgress(ctx, jobID, progress, msg)
	})
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Compile failed: %v", err))
		// a broken trace fails the same way on every retry
		if errors.Is(err, compiler.ErrUnknownStep) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if w.compileService.IsCanceled(ctx, jobID) {
		log.Info("compile job canceled, result discarded")
		return nil
	}

	if w.publisher != nil {
		w.updateProgress(ctx, jobID, 90, "Assembling project...")
		report, err := assembly.Materialize(ctx, result.AssetPlan, result.Project, w.publisher.Source, w.publisher.SinkFor(result.ProjectID), assembly.Options{Logger: log})
		if err != nil {
			w.failJob(ctx, jobID, fmt.Sprintf("Assembly failed: %v", err))
			if errors.Is(err, assembly.ErrUnsafeSource) || errors.Is(err, assembly.ErrUnsafeTarget) {
				return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
			}
			return err
		}
		result.DocumentURL = report.DocumentLocation
		if len(report.Missing) > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("assets not found: %v", report.Missing))
		}
	}

	if err := w.compileService.CompleteJob(ctx, jobID, result); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.WithField("projectId", result.ProjectID).Info("compile job completed")
	return nil
}

func (w *CompileWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.compileService.UpdateJobProgress(ctx, jobID, progress, step); err != nil {
		w.log.WithError(err).WithField("jobId", jobID).Warn("failed to update progress")
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *CompileWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.compileService.FailJob(ctx, jobID, errMsg); err != nil {
		w.log.WithError(err).WithField("jobId", jobID).Error("failed to mark job as failed")
	}
	w.hub.BroadcastError(jobID, "COMPILE_FAILED", errMsg)
}
