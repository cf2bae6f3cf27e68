package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"vocabquiz/services"

	"github.com/gin-gonic/gin"
)

const defaultResultLimit = 50

type WordHandler struct {
	wordService *services.WordService
	logger      *slog.Logger
}

func NewWordHandler(wordService *services.WordService, logger *slog.Logger) *WordHandler {
	return &WordHandler{
		wordService: wordService,
		logger:      logger,
	}
}

func (h *WordHandler) CreateWords(c *gin.Context) {
	var req services.CreateWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	words, err := h.wordService.CreateWords(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, words)
}

func (h *WordHandler) ListWords(c *gin.Context) {
	level := 0
	if raw := c.Query("level"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level"})
			return
		}
		level = n
	}

	words, err := h.wordService.ListWords(c.Request.Context(), level)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, words)
}

func (h *WordHandler) UpdateWord(c *gin.Context) {
	wordID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid word ID"})
		return
	}

	var req services.UpdateWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	word, err := h.wordService.UpdateWord(c.Request.Context(), uint(wordID), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, word)
}

func (h *WordHandler) DeleteWord(c *gin.Context) {
	wordID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid word ID"})
		return
	}

	if err := h.wordService.DeleteWord(c.Request.Context(), uint(wordID)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Word deleted successfully"})
}

// ListResults serves finished-game standings, optionally for one room.
func (h *WordHandler) ListResults(c *gin.Context) {
	limit := defaultResultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	results, err := h.wordService.ListResults(c.Request.Context(), c.Query("room"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *WordHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("word request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
