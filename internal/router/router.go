package router

import (
	"strings"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/cache"
	"github.com/JaroldEnderez/Vanity/internal/config"
	"github.com/JaroldEnderez/Vanity/internal/handler"
	"github.com/JaroldEnderez/Vanity/internal/middleware"
	"github.com/JaroldEnderez/Vanity/internal/repository"
	"github.com/JaroldEnderez/Vanity/internal/service"
	"github.com/JaroldEnderez/Vanity/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
//
// rdb may be nil: the owner summary is then uncached, branch activity is kept
// in memory and no low-stock alerts are queued.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(strings.Split(cfg.CORSOrigins, ",")))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	// ── Redis-backed collaborators ───────────────────────────────────────────
	var (
		summaryCache cache.SummaryCache   = cache.NoopSummaryCache{}
		activity     cache.BranchActivity = cache.NewMemoryActivity()
		alerts       service.StockAlertDispatcher
	)
	if rdb != nil {
		summaryCache = cache.NewRedisSummaryCache(rdb)
		activity = cache.NewRedisActivity(rdb)
		alerts = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	threshold := decimal.NewFromFloat(cfg.LowStockThreshold)
	inventorySvc := service.NewInventoryService(materialRepo, movementRepo, alerts, threshold)
	sessionSvc := service.NewSessionService(sessionRepo, catalogRepo, materialRepo, inventorySvc, alerts)
	catalogSvc := service.NewCatalogService(catalogRepo)
	authSvc := service.NewAuthService(accountRepo, cfg)
	analyticsSvc := service.NewAnalyticsService(reportRepo)
	ownerSvc := service.NewOwnerService(reportRepo, catalogRepo, sessionRepo, materialRepo, summaryCache, activity, service.OwnerConfig{
		SummaryTTL:   time.Duration(cfg.OwnerCacheTTLSeconds) * time.Second,
		OnlineWindow: time.Duration(cfg.BranchOnlineWindowMinutes) * time.Minute,
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	sessionsH := handler.NewSessionsHandler(sessionSvc)
	materialsH := handler.NewMaterialsHandler(inventorySvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	ownerH := handler.NewOwnerHandler(ownerSvc)
	analyticsH := handler.NewAnalyticsHandler(analyticsSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	jwtMW := middleware.JWTAuth(cfg.JWTSecret)

	// Branch terminals
	branch := r.Group("/v1", jwtMW, middleware.RequireBranch(), middleware.TrackBranchActivity(activity))
	{
		sessions := branch.Group("/sessions")
		{
			sessions.POST("", sessionsH.Create)
			sessions.GET("", sessionsH.ListDrafts)
			sessions.GET("/:id", sessionsH.Get)
			sessions.PATCH("/:id", sessionsH.UpdateMeta)
			sessions.DELETE("/:id", sessionsH.Delete)
			sessions.POST("/:id/items", sessionsH.AddItem)
			sessions.DELETE("/:id/items/:itemId", sessionsH.RemoveItem)
			sessions.PATCH("/:id/materials/:materialId", sessionsH.UpdateMaterial)
			sessions.POST("/:id/checkout", sessionsH.Checkout)
			sessions.POST("/:id/cancel", sessionsH.Cancel)
		}

		branch.GET("/sales", sessionsH.ListSales)
		branch.GET("/sales/analytics", analyticsH.Sales)
		branch.GET("/services", catalogH.ListServices)
		branch.GET("/staff", catalogH.ListStaff)

		materials := branch.Group("/materials")
		{
			materials.GET("", materialsH.List)
			materials.GET("/low-stock", materialsH.LowStock)
			materials.POST("/:id/adjust", materialsH.Adjust)
			materials.GET("/:id/movements", materialsH.Movements)
		}
	}

	// Owner dashboard
	owner := r.Group("/v1/owner", jwtMW, middleware.RequireOwner())
	{
		owner.GET("/summary", ownerH.Summary)
		owner.GET("/branches", ownerH.Branches)
		owner.GET("/branches/:id", ownerH.BranchDetail)
		owner.GET("/branches/:id/sales", ownerH.BranchSales)
		owner.GET("/branches/:id/sales/export", ownerH.ExportBranchSales)
		owner.GET("/branches/:id/inventory", ownerH.BranchInventory)
		owner.GET("/alerts/failed", handler.FailedAlerts(rdb))
	}

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
