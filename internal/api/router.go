package api

import (
	"github.com/gin-gonic/gin"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Version     string
	CORSOrigins []string
}

// NewRouter wires middleware and routes over the catalog.
func NewRouter(cat Catalog, opts RouterOptions) *gin.Engine {
	h := NewHandlers(cat, opts.Version)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logging())
	r.Use(CORS(opts.CORSOrigins))

	r.GET("/health", h.HealthCheck)

	v1 := r.Group("/api/v1")
	{
		// Catalog reads.
		v1.GET("/models", h.ListModels)
		v1.GET("/models/:provider/:slug", h.GetModel)
		v1.GET("/providers", h.ListProviders)
		v1.GET("/search", h.Search)
		v1.GET("/profile", h.GetProfile)

		// Refresh and cache control.
		v1.POST("/refresh", h.Refresh)
		v1.GET("/changes", h.LastChanges)
		v1.GET("/cache", h.CacheStatus)
		v1.DELETE("/cache", h.ClearCache)
		v1.DELETE("/cache/:slot", h.ClearCache)

		// Estimation.
		v1.POST("/estimate", h.Estimate)
	}
	return r
}
