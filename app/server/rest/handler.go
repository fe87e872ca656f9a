package rest

import (
	"supportdesk/app/service/conversation"
	"supportdesk/app/service/session"

	"github.com/elliotchance/pie/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type chatMessage struct {
	Role    string `json:"role" validate:"omitempty,oneof=user assistant system"`
	Content string `json:"content"`
}

type supportRequest struct {
	SessionID  string        `json:"session_id"`
	CustomerID string        `json:"customer_id"`
	Messages   []chatMessage `json:"messages" validate:"dive"`
}

type supportResponse struct {
	SessionID       string        `json:"session_id"`
	Conversation    []chatMessage `json:"conversation"`
	FinalResponse   string        `json:"final_response"`
	Intent          string        `json:"intent,omitempty"`
	Sentiment       string        `json:"sentiment,omitempty"`
	NeedsEscalation bool          `json:"needs_escalation"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	sessions Sessions
	validate *validator.Validate
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(statusResponse{Status: "ok"})
}

func (h *handler) support(c *fiber.Ctx) error {
	var req supportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sessionID := h.sessionID(c, req.SessionID)
	c.Set(sessionHeader, sessionID)

	if len(req.Messages) == 0 {
		return c.JSON(supportResponse{
			SessionID:    sessionID,
			Conversation: []chatMessage{},
		})
	}

	resp := h.sessions.ProcessTurn(c.UserContext(), session.Request{
		SessionID:  sessionID,
		CustomerID: req.CustomerID,
		Text:       req.Messages[len(req.Messages)-1].Content,
	})

	return c.JSON(supportResponse{
		SessionID:       resp.SessionID,
		Conversation:    pie.Map(resp.Messages, toChatMessage),
		FinalResponse:   resp.ResponseDraft,
		Intent:          string(resp.Intent),
		Sentiment:       string(resp.Sentiment),
		NeedsEscalation: resp.NeedsEscalation,
	})
}

func (h *handler) reset(c *fiber.Ctx) error {
	var req resetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.Get(sessionHeader)
	}
	if sessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id is required")
	}

	h.sessions.ResetSession(sessionID)

	return c.JSON(statusResponse{Status: "new chat started"})
}

// sessionID picks the body id, then the header, then a fresh one.
func (h *handler) sessionID(c *fiber.Ctx, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}

	if fromHeader := c.Get(sessionHeader); fromHeader != "" {
		return fromHeader
	}

	return uuid.NewString()
}

func toChatMessage(msg conversation.Message) chatMessage {
	return chatMessage{
		Role:    string(msg.Role),
		Content: msg.Content,
	}
}
