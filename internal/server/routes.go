package server

import (
	"net/http"

	"github.com/artfundry/bounty-server/internal/api"
	"github.com/artfundry/bounty-server/internal/api/middleware"
	"github.com/artfundry/bounty-server/internal/app"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	// Health check endpoint
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Not an API, just a simple file server endpoint
	s.ginEngine.GET("/file/:filename", handlerWrapper(app, api.GetFile))

	apiV1 := s.ginEngine.Group("/api/v1")

	// Authentication middleware
	apiV1.Use(handlerWrapper(app, middleware.AuthenticationMiddleware))

	apiV1.POST("/upload", handlerWrapper(app, api.UploadFile))
	apiV1.GET("/balance", handlerWrapper(app, api.GetBalance))

	apiV1.POST("/bounties", handlerWrapper(app, api.CreateBounty))
	apiV1.GET("/bounties", handlerWrapper(app, api.ListBounties))
	apiV1.GET("/bounties/:id", handlerWrapper(app, api.GetBounty))
	apiV1.PUT("/bounties/:id", handlerWrapper(app, api.UpdateBounty))
	apiV1.DELETE("/bounties/:id", handlerWrapper(app, api.DeleteBounty))

	apiV1.POST("/bounties/:id/benefactors", handlerWrapper(app, api.ContributeToBounty))
	apiV1.POST("/bounties/:id/entries", handlerWrapper(app, api.CreateBountyEntry))
	apiV1.PUT("/bounties/:id/engagements/:type", handlerWrapper(app, api.SetBountyEngagement))
	apiV1.DELETE("/bounties/:id/engagements/:type", handlerWrapper(app, api.RemoveBountyEngagement))

	apiV1.GET("/bounties/:id/files", handlerWrapper(app, api.GetBountyFiles))
	apiV1.GET("/bounties/:id/images", handlerWrapper(app, api.GetBountyImages))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
