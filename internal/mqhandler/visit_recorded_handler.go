package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/logger"
	"portfolio-notify/pkg/mq"
)

type visitStore interface {
	Insert(ctx context.Context, v model.VisitEvent) (bool, error)
}

type VisitRecordedHandler struct {
	repo   visitStore
	logger *zap.Logger
}

func NewVisitRecordedHandler(repo visitStore, logger *zap.Logger) *VisitRecordedHandler {
	return &VisitRecordedHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleVisitRecorded -- 写入 visits
func (h *VisitRecordedHandler) HandleVisitRecorded(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var v model.VisitEvent
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Error("Failed to unmarshal visit recorded payload", zap.Error(err))
		return mq.Permanent(fmt.Errorf("decode visit: %w", err))
	}
	if v.ID == "" {
		log.Error("Visit recorded payload has no id")
		return mq.Permanent(errors.New("visit payload missing id"))
	}

	inserted, err := h.repo.Insert(ctx, v)
	if err != nil {
		log.Error("Failed to insert visit",
			zap.String("visit_id", v.ID),
			zap.Error(err),
		)
		return err
	}

	log.Info("Visit stored",
		zap.String("visit_id", v.ID),
		zap.String("class", v.Class()),
		zap.Bool("inserted", inserted),
	)
	return nil
}
