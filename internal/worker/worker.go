package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"pulsehq.app/pulse/common/logger"
	"pulsehq.app/pulse/internal/queue"
	"pulsehq.app/pulse/internal/service"
)

type Config struct {
	MaxAttempts int
}

// Worker drains the task stream and dispatches each message to the
// matching service. Failed messages are requeued with an incremented
// attempt counter until MaxAttempts, then parked on the DLQ.
type Worker struct {
	consumer *queue.RedisConsumer
	services *service.Services
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, services *service.Services, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		services:  services,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"task_type", msg.TaskType)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"task_type", msg.TaskType)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// Exported so it can be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	taskType := string(msg.TaskType)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "pulse.worker",
		Project:   logger.Ptr(msg.Project),
		MessageID: &msg.ID,
		TaskType:  &taskType,
	})

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	var err error
	switch msg.TaskType {
	case queue.TaskTypeMapFeatures:
		_, err = w.services.Mapping().MapGroups(ctx, service.MapGroupsParams{
			Project:  msg.Project,
			GroupIDs: msg.GroupIDs,
		})
	case queue.TaskTypeTrackerSync:
		_, err = w.services.TrackerSync().Sync(ctx, msg.Project)
	case queue.TaskTypeDistill:
		params := service.DistillParams{Project: msg.Project}
		if msg.Scope != "" {
			params.Scope = &msg.Scope
		}
		_, err = w.services.Distill().Distill(ctx, params)
	default:
		// ParseMessage already rejects unknown task types; this is a guard
		// against a stream written by a newer producer.
		slog.WarnContext(ctx, "unhandled task type, acknowledging")
	}
	if err != nil {
		sc.RecordError(err)
		return fmt.Errorf("running %s task: %w", msg.TaskType, err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be reclaimed later; reprocessing is safe since every
		// task is idempotent over its inputs.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"task_type", msg.TaskType,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
