package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"support-desk/internal/service"
)

// MessageHandler expone la cola de mensajes de soporte.
type MessageHandler struct {
	logger   *zap.Logger
	messages *service.MessageService
}

func NewMessageHandler(logger *zap.Logger, messages *service.MessageService) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageHandler{logger: logger, messages: messages}
}

// ListMessages maneja GET /api/messages.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	messages, err := h.messages.ListVisible(c.Request.Context(), viewerFrom(c))
	if err != nil {
		writeServiceError(c, h.logger, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// PostMessage maneja POST /api/messages. Requiere sesión.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		UserMessage string `json:"userMessage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.messages.Submit(c.Request.Context(), identity, req.UserMessage)
	if err != nil {
		writeServiceError(c, h.logger, "submit message", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "message submitted", "data": msg})
}

// Reply maneja POST /api/messages/reply.
func (h *MessageHandler) Reply(c *gin.Context) {
	var req struct {
		ID    json.RawMessage `json:"id"`
		Reply string          `json:"reply"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reply request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id, ok := parseMessageID(req.ID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if _, err := h.messages.Reply(c.Request.Context(), viewerFrom(c), id, req.Reply); err != nil {
		writeServiceError(c, h.logger, "reply message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reply saved"})
}

// parseMessageID acepta el id como número JSON o como string. Un valor que no
// corresponde a ningún id posible devuelve 0, que el servicio trata como no encontrado;
// ok es false solo si el tipo JSON no es número ni string.
func parseMessageID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	text := string(raw)
	switch {
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
	default:
		return 0, false
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, true
	}
	return id, true
}
