package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-notify/internal/model"
	"portfolio-notify/internal/service/visit"
	"portfolio-notify/pkg/logger"
)

type visitRecorder interface {
	Record(ctx context.Context, ev model.VisitEvent) visit.Result
}

type VisitHandler struct {
	recorder visitRecorder
	logger   *zap.Logger
}

func NewVisitHandler(recorder visitRecorder, logger *zap.Logger) *VisitHandler {
	return &VisitHandler{recorder: recorder, logger: logger}
}

// timestampLayouts are tried in order; zoneless values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

type logVisitRequest struct {
	URL       string `json:"url"`
	UserAgent string `json:"userAgent"`
	IsBot     *bool  `json:"isBot"`
	Timestamp string `json:"timestamp"`
}

// LogVisit handles POST /api/log-visit. Recording is best-effort; a
// well-formed event always gets 200.
func (h *VisitHandler) LogVisit(c *gin.Context) {
	var req logVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ev := model.VisitEvent{
		URL:         req.URL,
		UserAgent:   req.UserAgent,
		ClientIsBot: req.IsBot,
		RemoteAddr:  c.ClientIP(),
		Referrer:    c.Request.Referer(),
	}
	if ev.UserAgent == "" {
		ev.UserAgent = c.Request.UserAgent()
	}
	if req.Timestamp != "" {
		ts, ok := parseTimestamp(req.Timestamp)
		if !ok {
			logger.WithTrace(c.Request.Context(), h.logger).Warn("Unparseable visit timestamp, using server time",
				zap.String("timestamp", req.Timestamp),
				zap.String("url", req.URL),
			)
		}
		ev.Timestamp = ts
	}

	h.recorder.Record(c.Request.Context(), ev)

	c.JSON(http.StatusOK, gin.H{"message": "Visit logged successfully"})
}
