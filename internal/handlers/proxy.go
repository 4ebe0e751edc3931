package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DataFetcher reads the backend data endpoint.
type DataFetcher interface {
	FetchData(ctx context.Context) ([]byte, error)
}

// RegisterProxyRoutes registers the read-through endpoint.
//
// GET /api/symfony-data
// - 200 with the upstream JSON body verbatim
// - 500 with a fixed message on any upstream failure; the cause is only logged
func RegisterProxyRoutes(r gin.IRoutes, upstream DataFetcher, logger zerolog.Logger) {
	log := logger.With().Str("component", "proxy").Logger()

	r.GET("/api/symfony-data", func(c *gin.Context) {
		body, err := upstream.FetchData(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch backend data.")
			c.String(http.StatusInternalServerError, "Error fetching data from Symfony")
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	})
}
