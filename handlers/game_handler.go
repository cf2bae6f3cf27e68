package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vocabquiz/middleware"
	"vocabquiz/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type roomStateResponse struct {
	*services.RoomSnapshot
	PlayerID string `json:"playerId"`
}

type GameHandler struct {
	gameService *services.GameService
	hub         *services.Hub
	upgrader    websocket.Upgrader
	publicURL   string
	logger      *slog.Logger
}

func NewGameHandler(gameService *services.GameService, hub *services.Hub, publicURL string, allowedOrigins []string, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.OriginAllowed(allowedOrigins),
		},
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
	}
}

// ServeWS upgrades the request and hands the connection to the hub.
func (h *GameHandler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warn("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}
	if h.hub.RegisterClient(conn) == nil {
		h.logger.Warn("websocket refused during shutdown", "remote", c.ClientIP())
	}
}

// GetRoomState returns the room's state after applying any due transition.
// The ticket middleware has already checked the caller belongs to the room.
func (h *GameHandler) GetRoomState(c *gin.Context) {
	snapshot, err := h.gameService.SyncState(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomStateResponse{
		RoomSnapshot: snapshot,
		PlayerID:     c.GetString(middleware.ContextPlayerID),
	})
}

// GetRoomQR renders a PNG QR code of the join link for a room.
func (h *GameHandler) GetRoomQR(c *gin.Context) {
	code := services.NormalizeRoomCode(c.Param("code"))
	if err := h.gameService.CheckRoom(c.Request.Context(), code); err != nil {
		h.writeError(c, err)
		return
	}

	png, err := qrcode.Encode(h.publicURL+"/join/"+code, qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error("qr generation failed", "room", code, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Health reports liveness with the number of open connections.
func (h *GameHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"clients":    h.hub.ClientCount(),
		"registered": h.gameService.Registry().Len(),
	})
}

func (h *GameHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidState):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": services.ErrorKind(err)})
}
