package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medassist/medassist/internal/intent"
	"github.com/medassist/medassist/internal/service"
)

type ChatHandler struct {
	chatSvc *service.ChatService
}

func NewChatHandler(chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Mode    string `json:"mode" binding:"omitempty,oneof=medical_report medical_knowledge"`
}

func (h *ChatHandler) Message(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.chatSvc.HandleMessage(c.Request.Context(), req.Message, intent.Mode(req.Mode), service.ChatCaller{
		UserID: claims.UserID,
		Role:   string(claims.Role),
		IP:     c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, out)
}
