package httpserver

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/realtime-relay/internal/auth"
	"github.com/PratikDhanave/realtime-relay/internal/config"
	"github.com/PratikDhanave/realtime-relay/internal/handlers"
)

// Hub is the connection registry as seen by the HTTP surface.
type Hub interface {
	handlers.Publisher
	handlers.ConnectionCounter
}

// Deps are the collaborators NewRouter wires into routes.
type Deps struct {
	Hub       Hub
	WebSocket http.Handler
	Upstream  handlers.DataFetcher
	Logger    zerolog.Logger
}

// NewRouter wires the HTTP surface.
// Public: /health, the websocket endpoint, /api/symfony-data
// Webhooks: /webhook/* (shared-key gate when keys are configured)
func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(d.Logger))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	handlers.RegisterHealthRoutes(r, d.Hub)
	r.GET(cfg.WSPath, gin.WrapH(d.WebSocket))
	handlers.RegisterProxyRoutes(r, d.Upstream, d.Logger)

	webhooks := r.Group("/webhook")
	webhooks.Use(auth.NewGate(cfg.WebhookAPIKeys, d.Logger).Middleware())
	handlers.RegisterWebhookRoutes(webhooks, d.Hub, d.Logger)

	if cfg.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticDir))))
	}

	return r
}

// CheckOrigin returns the websocket origin check for the configured CORS
// origins. Requests without an Origin header are always accepted.
func CheckOrigin(origins []string) func(r *http.Request) bool {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowAll || origin == "" || slices.Contains(origins, origin)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: true,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = origins
	}
	return c
}
