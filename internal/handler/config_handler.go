package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-notify/pkg/config"
)

type ConfigHandler struct {
	relay config.RelayConfig
}

func NewConfigHandler(relay config.RelayConfig) *ConfigHandler {
	return &ConfigHandler{relay: relay}
}

// GetConfig handles GET /api/config. It exposes only the public relay
// identifiers the browser needs to send mail itself.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"serviceId":         h.relay.ServiceID,
		"templateId":        h.relay.TemplateID,
		"confirmTemplateId": h.relay.ConfirmTemplateID,
		"publicKey":         h.relay.PublicKey,
		"sendConfirmation":  h.relay.ConfirmTemplateID != "",
	})
}
