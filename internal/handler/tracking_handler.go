package handler

import (
	"bytes"
	"encoding/json"
	"errors"

	"canvasthink-be/internal/dto"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/pkg/serverutils"
	"canvasthink-be/internal/service"
	internalWS "canvasthink-be/internal/websocket"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/emotion"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type TrackingHandler struct {
	service service.ISessionService
	archive service.IArchiveReader
	hub     *internalWS.Hub
	secret  string
	logger  logger.ILogger
}

// NewTrackingHandler builds the session API. archive may be nil when no
// database is configured; the archive route is then not registered.
func NewTrackingHandler(svc service.ISessionService, archive service.IArchiveReader, hub *internalWS.Hub, secret string, log logger.ILogger) *TrackingHandler {
	return &TrackingHandler{
		service: svc,
		archive: archive,
		hub:     hub,
		secret:  secret,
		logger:  log,
	}
}

func (h *TrackingHandler) RegisterRoutes(r fiber.Router) {
	api := r.Group("/api")
	api.Post("/sessions", h.StartSession)
	api.Get("/ws", h.ServeWs)

	session := api.Group("/sessions/:id", serverutils.JwtMiddleware(h.secret), serverutils.OwnsSession)
	session.Post("/events", h.DispatchEvents)
	session.Post("/pageviews", h.RecordPageView)
	session.Get("/summary", h.GetSummary)
	session.Get("/emotion", h.GetEmotion)
	session.Put("/emotion", h.SetEmotion)
	session.Delete("/", h.EndSession)
	if h.archive != nil {
		session.Get("/archive", h.GetArchive)
	}
}

// mapError translates service errors into HTTP errors; anything else falls
// through to the global error handler as a 500.
func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, emotion.ErrUnknownLabel):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func (h *TrackingHandler) StartSession(c *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := serverutils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.service.Start(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *TrackingHandler) DispatchEvents(c *fiber.Ctx) error {
	var req dto.EventBatchRequest
	if err := serverutils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.service.Dispatch(c.Params("id"), req.Events)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(resp)
}

func (h *TrackingHandler) RecordPageView(c *fiber.Ctx) error {
	var req dto.PageViewRequest
	if err := serverutils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.service.RecordPageView(c.Params("id"), req.Path); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TrackingHandler) GetSummary(c *fiber.Ctx) error {
	resp, err := h.service.Summary(c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(resp)
}

func (h *TrackingHandler) GetEmotion(c *fiber.Ctx) error {
	resp, err := h.service.Emotion(c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(resp)
}

func (h *TrackingHandler) SetEmotion(c *fiber.Ctx) error {
	var req dto.SetEmotionRequest
	if err := serverutils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.service.SetEmotion(c.Params("id"), req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(resp)
}

func (h *TrackingHandler) EndSession(c *fiber.Ctx) error {
	if err := h.service.End(c.UserContext(), c.Params("id")); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetArchive serves what the archiver stored for the session, including
// sessions that already ended.
func (h *TrackingHandler) GetArchive(c *fiber.Ctx) error {
	q := dto.ArchiveQuery{Limit: 100}
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.Validate(q); err != nil {
		return err
	}
	resp, err := h.archive.History(c.UserContext(), c.Params("id"), q)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ServeWs upgrades a session token holder to a websocket. Frames sent by the
// browser carry events for the session; frames received carry interactions,
// state changes and adaptations.
func (h *TrackingHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	claims, err := serverutils.ParseSessionToken(h.secret, tokenStr)
	if err != nil {
		h.logger.Warn("TrackingHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID := claims.SessionID

	if _, err := h.service.Summary(sessionID); err != nil {
		return mapError(err)
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("TrackingHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID, func(data []byte) {
				h.onSocketMessage(sessionID, data)
			})
			h.logger.Info("TrackingHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *TrackingHandler) onSocketMessage(sessionID string, data []byte) {
	evs, err := decodeSocketEvents(data)
	if err != nil {
		h.logger.Warn("TrackingHandler", "Dropping malformed socket frame", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}
	if _, err := h.service.Dispatch(sessionID, evs); err != nil {
		h.logger.Warn("TrackingHandler", "Socket events rejected", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// decodeSocketEvents accepts a single event object or an array of events.
func decodeSocketEvents(data []byte) ([]browser.Event, error) {
	data = bytes.TrimSpace(data)
	var req dto.EventBatchRequest
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &req.Events); err != nil {
			return nil, err
		}
	} else {
		var ev browser.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		req.Events = []browser.Event{ev}
	}
	if err := serverutils.Validate(req); err != nil {
		return nil, err
	}
	return req.Events, nil
}
