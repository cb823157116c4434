package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mechshop-dev/mechshop/internal/auth"
	"github.com/mechshop-dev/mechshop/internal/cache"
	"github.com/mechshop-dev/mechshop/internal/handlers"
	"github.com/mechshop-dev/mechshop/internal/middleware"
	"github.com/mechshop-dev/mechshop/internal/relations"
	"github.com/mechshop-dev/mechshop/internal/types"
	"gorm.io/gorm"
)

type Deps struct {
	DB     *gorm.DB
	Tokens *auth.Manager
	Cache  *cache.ListCache

	// Rate limit for the credential endpoints.
	AuthRateRPS   float64
	AuthRateBurst int
}

// New wires the full route table. Which routes sit behind RequireAuth is a
// deliberate configuration decision: customer self-service and everything
// that touches ticket ownership is guarded, the shop catalogues and the
// public ticket listing are not.
func New(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine := relations.NewEngine(deps.DB)
	customerHandler := handlers.NewCustomerHandler(deps.DB, deps.Tokens, deps.Cache)
	ticketHandler := handlers.NewTicketHandler(deps.DB, engine, deps.Cache)
	mechanicHandler := handlers.NewMechanicHandler(deps.DB)
	partHandler := handlers.NewPartHandler(deps.DB)

	requireAuth := middleware.RequireAuth(deps.Tokens, deps.DB)
	authRate := middleware.RateLimit(deps.AuthRateRPS, deps.AuthRateBurst)

	r.GET("/health", handlers.HealthCheck)

	customers := r.Group("/customers")
	{
		customers.POST("", authRate, customerHandler.Register)
		customers.POST("/login", authRate, customerHandler.Login)
		customers.GET("", customerHandler.List)
		customers.GET("/my-tickets", requireAuth, customerHandler.MyTickets)
		customers.PUT("/me", requireAuth, customerHandler.UpdateMe)
		customers.DELETE("/me", requireAuth, customerHandler.DeleteMe)
		customers.GET("/:id", customerHandler.Get)
	}

	tickets := r.Group("/service-tickets")
	{
		tickets.GET("", ticketHandler.List)

		guarded := tickets.Group("", requireAuth)
		{
			guarded.POST("", ticketHandler.Create)
			guarded.GET("/:id", ticketHandler.Get)
			guarded.PUT("/:id", ticketHandler.Update)
			guarded.DELETE("/:id", ticketHandler.Delete)

			guarded.PUT("/:id/assign-mechanic/:mechanic_id", ticketHandler.AssignMechanic)
			guarded.PUT("/:id/remove-mechanic/:mechanic_id", ticketHandler.RemoveMechanic)
			guarded.PUT("/:id/edit", ticketHandler.EditMechanics)
			guarded.PUT("/:id/add-part/:part_id", ticketHandler.AddPart)
			guarded.PUT("/:id/remove-part/:part_id", ticketHandler.RemovePart)
			guarded.PUT("/:id/edit-parts", ticketHandler.EditParts)
		}
	}

	mechanics := r.Group("/mechanics")
	{
		mechanics.POST("", mechanicHandler.Create)
		mechanics.GET("", mechanicHandler.List)
		mechanics.GET("/:id", mechanicHandler.Get)
		mechanics.PUT("/:id", mechanicHandler.Update)
		mechanics.DELETE("/:id", mechanicHandler.Delete)
	}

	inventory := r.Group("/inventory")
	{
		inventory.POST("", partHandler.Create)
		inventory.GET("", partHandler.List)
		inventory.GET("/:id", partHandler.Get)
		inventory.PUT("/:id", partHandler.Update)
		inventory.DELETE("/:id", partHandler.Delete)
	}

	return r
}
