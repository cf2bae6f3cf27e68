package routes

import (
	"vocabquiz/handlers"
	"vocabquiz/middleware"
	"vocabquiz/services"

	"github.com/gin-gonic/gin"
)

type Options struct {
	AllowedOrigins []string
	AdminKey       string
}

// SetupRoutes registers the HTTP surface. wordHandler may be nil when no
// database is configured; the admin routes are then absent.
func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	wordHandler *handlers.WordHandler,
	tickets *services.TicketIssuer,
	opts Options,
) {
	router.Use(middleware.CORS(opts.AllowedOrigins))

	// Every websocket frame is routed by its type field once connected.
	router.GET("/ws", gameHandler.ServeWS)

	api := router.Group("/api")
	{
		rooms := api.Group("/rooms/:code")
		{
			rooms.GET("/state", middleware.TicketAuth(tickets), gameHandler.GetRoomState)
			rooms.GET("/qr", gameHandler.GetRoomQR)
		}

		if wordHandler != nil && opts.AdminKey != "" {
			admin := api.Group("/admin")
			admin.Use(middleware.AdminKey(opts.AdminKey))
			{
				words := admin.Group("/words")
				{
					words.GET("", wordHandler.ListWords)
					words.POST("", wordHandler.CreateWords)
					words.PUT("/:id", wordHandler.UpdateWord)
					words.DELETE("/:id", wordHandler.DeleteWord)
				}
				admin.GET("/results", wordHandler.ListResults)
			}
		}
	}

	router.GET("/health", gameHandler.Health)
}
