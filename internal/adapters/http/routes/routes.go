package routes

import (
	"time"

	"solilend/internal/adapters/http/handlers"
	"solilend/internal/adapters/http/middleware"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/config"
	"solilend/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application and returns the monitor
// service so main can start and stop its schedules.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *services.MonitorService {
	// Initialize repositories
	memberRepo := repositories.NewMemberRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	dupRepo := repositories.NewDuplicateRepository(db)
	waitlistRepo := repositories.NewWaitlistRepository(db)
	capacityRepo := repositories.NewCapacityRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	uploadRepo := repositories.NewUploadRepository(db)

	// Initialize services
	notifier := services.NewLogNotifier()
	admissionService := services.NewAdmissionService(memberRepo, waitlistRepo, capacityRepo, notifier)
	duplicateService := services.NewDuplicateService(memberRepo, dupRepo, admissionService, notifier)
	capacityService := services.NewCapacityService(capacityRepo, memberRepo)
	authService := services.NewAuthService(memberRepo, refreshTokenRepo, duplicateService, admissionService, cfg)
	loanService := services.NewLoanService(loanRepo, memberRepo, notifier)
	memberService := services.NewMemberService(memberRepo, refreshTokenRepo, admissionService)
	uploadService := services.NewUploadService(uploadRepo, cfg.Upload)
	monitorService := services.NewMonitorService(loanRepo, uploadRepo, refreshTokenRepo, notifier, cfg.Upload.Dir)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	loanHandler := handlers.NewLoanHandler(loanService)
	admissionHandler := handlers.NewAdmissionHandler(admissionService, duplicateService, capacityService)
	memberHandler := handlers.NewMemberHandler(memberService)
	uploadHandler := handlers.NewUploadHandler(uploadService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded files
	app.Static(cfg.Upload.BaseURL, cfg.Upload.Dir)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, loanHandler, admissionHandler,
		memberHandler, uploadHandler, cfg)

	return monitorService
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	loanHandler *handlers.LoanHandler,
	admissionHandler *handlers.AdmissionHandler,
	memberHandler *handlers.MemberHandler,
	uploadHandler *handlers.UploadHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Loan routes (authenticated)
	loanRoutes := router.Group("/loans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg))
	setupLoanRoutes(loanRoutes, loanHandler)

	// Admission routes: waiting list, duplicates, capacity (staff)
	setupAdmissionRoutes(router, admissionHandler, cfg)

	// Client management routes (staff)
	clientRoutes := router.Group("/clients")
	clientRoutes.Use(middleware.AuthMiddleware(cfg))
	setupClientRoutes(clientRoutes, memberHandler)

	// Staff management routes (super admin)
	staffRoutes := router.Group("/staff")
	staffRoutes.Use(middleware.AuthMiddleware(cfg))
	staffRoutes.Use(middleware.RequireCapability(middleware.CapManageStaff))
	setupStaffRoutes(staffRoutes, memberHandler)

	// Upload routes (authenticated, strict rate limit)
	uploadRoutes := router.Group("/uploads")
	uploadRoutes.Use(middleware.AuthMiddleware(cfg))
	uploadRoutes.Post("/", middleware.StrictRateLimiter(), uploadHandler.Upload)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", middleware.StrictRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), middleware.NoCacheHeaders(), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupLoanRoutes configures loan lifecycle routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	// Borrower routes
	router.Post("/", handler.Create)
	router.Get("/me", handler.MyLoans)
	router.Get("/:id", handler.Get)
	router.Post("/:id/installments/:number/proof", handler.SubmitProof)

	// Staff listing (read-only staff included)
	router.Get("/", middleware.RequireCapability(middleware.CapViewLoans), handler.List)

	// Staff decision routes
	decideRoutes := router.Group("")
	decideRoutes.Use(middleware.RequireCapability(middleware.CapDecideLoans))
	decideRoutes.Post("/:id/approve", handler.Approve)
	decideRoutes.Post("/:id/reject", handler.Reject)
	decideRoutes.Post("/:id/disburse", handler.Disburse)
	decideRoutes.Post("/:id/default", handler.MarkDefault)

	// Payment confirmation
	confirmRoutes := router.Group("")
	confirmRoutes.Use(middleware.RequireCapability(middleware.CapConfirmPayments))
	confirmRoutes.Post("/:id/installments/:number/confirm", handler.ConfirmPayment)
}

// setupAdmissionRoutes configures waiting list, duplicate, and capacity routes
func setupAdmissionRoutes(router fiber.Router, handler *handlers.AdmissionHandler, cfg *config.Config) {
	waitingRoutes := router.Group("/waiting-list")
	waitingRoutes.Use(middleware.AuthMiddleware(cfg))
	waitingRoutes.Get("/",
		middleware.RequireCapability(middleware.CapViewWaitlist),
		handler.ListWaiting)
	waitingRoutes.Post("/:id/activate",
		middleware.RequireCapability(middleware.CapManageWaitlist),
		handler.ActivateWaiting)

	duplicateRoutes := router.Group("/duplicates")
	duplicateRoutes.Use(middleware.AuthMiddleware(cfg))
	duplicateRoutes.Get("/",
		middleware.RequireCapability(middleware.CapViewDuplicates),
		handler.ListDuplicates)
	duplicateRoutes.Post("/:id/resolve",
		middleware.RequireCapability(middleware.CapReviewDuplicates),
		handler.ResolveDuplicate)

	// Capacity status is public; only parameter changes require staff.
	capacityRoutes := router.Group("/capacity")
	capacityRoutes.Get("/",
		middleware.CacheControl(30*time.Second),
		handler.GetCapacity)
	capacityRoutes.Put("/",
		middleware.AuthMiddleware(cfg),
		middleware.RequireCapability(middleware.CapManageCapacity),
		handler.UpdateCapacity)
}

// setupClientRoutes configures client management routes. Listing and viewing
// are open to read-only staff; creation and removal are not.
func setupClientRoutes(router fiber.Router, handler *handlers.MemberHandler) {
	router.Get("/", middleware.RequireCapability(middleware.CapViewClients), handler.ListClients)
	router.Get("/:id", middleware.RequireCapability(middleware.CapViewClients), handler.GetClient)
	router.Post("/", middleware.RequireCapability(middleware.CapManageClients), handler.CreateClient)
	router.Delete("/:id", middleware.RequireCapability(middleware.CapManageClients), handler.RemoveClient)
}

// setupStaffRoutes configures staff management routes
func setupStaffRoutes(router fiber.Router, handler *handlers.MemberHandler) {
	router.Get("/", handler.ListStaff)
	router.Post("/", handler.CreateStaff)
	router.Put("/:id/role", handler.ChangeRole)
	router.Delete("/:id", handler.DeleteStaff)
}
