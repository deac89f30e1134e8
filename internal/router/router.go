package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sim-ashish/chat-service/internal/handler"
	"github.com/sim-ashish/chat-service/pkg/constants"
)

// New builds the HTTP router.
func New(
	messages *handler.MessageHandler,
	chatWS *handler.ChatWSHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// Permissive CORS for the frontend dev server.
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	// Chat history
	r.GET(constants.PathMessages, messages.GetMessages)

	// WebSocket: /ws/group/:group_id
	r.GET(constants.PathWSGroup, chatWS.ServeWS)

	return r
}
