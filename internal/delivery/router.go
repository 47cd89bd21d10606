package delivery

import (
	"pos_service/internal/domain"
	"pos_service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Products   *ProductHandler
	Categories *CategoryHandler
	Sales      *SaleHandler
	Users      *UserHandler
	Auth       *AuthHandler
	Reports    *ReportHandler
	Health     *HealthHandler
}

// NewRouter builds the HTTP surface. Everything under /api except login needs
// a session; catalog writes and reports need admin or manager; user
// management needs admin.
func NewRouter(h Handlers, sessions middleware.SessionResolver, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger))

	h.Health.RegisterRoutes(router)

	public := router.Group("/api")
	authed := public.Group("", middleware.AuthMiddleware(sessions, logger))
	staff := authed.Group("", middleware.RequireRoles(logger, domain.RoleAdmin, domain.RoleManager))
	admins := authed.Group("", middleware.RequireRoles(logger, domain.RoleAdmin))

	h.Auth.RegisterRoutes(public, authed)
	h.Products.RegisterRoutes(authed, staff)
	h.Categories.RegisterRoutes(authed, staff)
	h.Sales.RegisterRoutes(authed)
	h.Reports.RegisterRoutes(staff)
	h.Users.RegisterRoutes(admins)

	return router
}
