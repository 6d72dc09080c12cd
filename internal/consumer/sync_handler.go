package consumer

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/fitproof/internal/domain"
	"example.com/fitproof/internal/events"
	"example.com/fitproof/internal/syncer"
)

// BatchSyncer is the orchestrator surface the handler needs.
type BatchSyncer interface {
	SyncBatchWithID(ctx context.Context, batchID string, payloads []domain.SyncWorkoutSessionPayload) syncer.BatchResult
}

// SyncBatchMessage is the body of a session.sync_batch message.
type SyncBatchMessage struct {
	BatchID  string                             `json:"batch_id"`
	Sessions []domain.SyncWorkoutSessionPayload `json:"sessions"`
}

// SyncBatchHandler feeds sync batches to the orchestrator.
type SyncBatchHandler struct {
	syncer BatchSyncer
	logger logrus.FieldLogger
}

// NewSyncBatchHandler constructs a SyncBatchHandler.
func NewSyncBatchHandler(s BatchSyncer, logger logrus.FieldLogger) *SyncBatchHandler {
	if logger == nil {
		logger = logrus.StandardLogger().WithField("component", "sync_handler")
	}
	return &SyncBatchHandler{syncer: s, logger: logger}
}

// Handle implements Handler. Item failures are logged and the message is still committed;
// only a cancelled context asks for redelivery.
func (h *SyncBatchHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeSyncBatch {
		h.logger.WithField("event_type", msg.EventType).Debug("ignoring unsupported event type")
		return nil
	}

	var batch SyncBatchMessage
	if err := json.Unmarshal(msg.Payload, &batch); err != nil {
		h.logger.WithError(err).WithField("offset", msg.Offset).Warn("dropping undecodable sync batch")
		recordDecodeError(msg.Topic)
		return nil
	}
	if batch.BatchID == "" {
		batch.BatchID = uuid.NewString()
	}

	result := h.syncer.SyncBatchWithID(ctx, batch.BatchID, batch.Sessions)
	if err := ctx.Err(); err != nil {
		return err
	}

	if result.Failed > 0 {
		h.logger.WithFields(logrus.Fields{
			"batch_id": result.BatchID,
			"failed":   result.Failed,
		}).WithError(result.Err()).Warn("sync batch completed with failures")
	}
	return nil
}
