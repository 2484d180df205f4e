package api

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"lms.com/internal/api/middleware"
	"lms.com/internal/config"
	"lms.com/internal/engine"
)

// Router 负责注册所有路由
type Router struct {
	app      *fiber.App
	cfg      *config.Config
	eng      *engine.Engine
	enforcer *casbin.Enforcer
	router   fiber.Router // /api group
}

func NewRouter(app *fiber.App, cfg *config.Config, eng *engine.Engine, enforcer *casbin.Enforcer) *Router {
	return &Router{
		app:      app,
		cfg:      cfg,
		eng:      eng,
		enforcer: enforcer,
	}
}

// RegisterRoutes 注册所有业务路由
func (r *Router) RegisterRoutes() {
	// 1. 初始化各个 Handler
	authHandler := NewAuthHandler(r.eng.GetAccountService(), r.cfg.Server.LoginRate, r.cfg.Server.LoginBurst)
	bookHandler := NewBookHandler(r.eng.GetInventoryService())
	requestHandler := NewRequestHandler(r.eng.GetRequestService())
	catalogHandler := NewCatalogHandler(r.eng.GetCatalogService(), r.eng.GetSearchService())
	profileHandler := NewProfileHandler(r.eng.GetProfileService())

	// 2. 注册 WebSocket 路由 (token 通过查询参数校验)
	InitWebsocket(r.app, r.eng.GetWebSocketHub(), r.eng.GetTokenManager(), r.eng.GetTokenStore())

	// 3. 注册公开路由 (Public)
	// Health Check
	r.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"Status":  "ok",
			"Message": "Service is healthy",
		})
	})

	// Auth Public Routes
	r.app.Post("/auth/register/student", authHandler.RegisterStudent)
	r.app.Post("/auth/register/admin", authHandler.RegisterAdmin)
	r.app.Post("/auth/login", authHandler.Login)

	// 4. 注册受保护的 API 路由 (Protected /api)
	r.router = r.app.Group("/api")
	r.router.Use(middleware.CasbinMiddleware(r.enforcer, r.eng.GetTokenManager(), r.eng.GetTokenStore(), r.eng.GetAccountService()))

	// 分组注册子路由
	r.registerAuthRoutes(authHandler)
	r.registerCatalogRoutes(catalogHandler, bookHandler)
	r.registerRequestRoutes(requestHandler)
	r.registerMeRoutes(profileHandler, requestHandler, catalogHandler)
	r.registerAdminRoutes(profileHandler, catalogHandler)
}

func (r *Router) registerAuthRoutes(h *AuthHandler) {
	r.router.Get("/auth/me", h.GetMe)
	r.router.Post("/auth/logout", h.Logout)
}

func (r *Router) registerCatalogRoutes(catalog *CatalogHandler, books *BookHandler) {
	categories := r.router.Group("/categories")
	categories.Get("/", catalog.GetCategories)
	categories.Post("/", catalog.CreateCategory)
	categories.Get("/:id/books", catalog.GetCategoryBooks)

	b := r.router.Group("/books")
	b.Get("/", books.GetBooks)
	b.Post("/", books.CreateBook)
	b.Get("/available", books.GetAvailableBooks)
	b.Get("/:id", books.GetBook)
	b.Delete("/:id", books.DeleteBook)
	b.Post("/:id/availability", books.ToggleAvailability)
	b.Post("/:id/copies", books.AdjustCopies)

	r.router.Get("/search/books", catalog.SearchBooks)
}

func (r *Router) registerRequestRoutes(h *RequestHandler) {
	r.router.Post("/books/:id/requests", h.RequestBook)

	requests := r.router.Group("/requests")
	requests.Get("/pending", h.GetPendingRequests)
	requests.Post("/:id/approve", h.ApproveRequest)
}

func (r *Router) registerMeRoutes(profile *ProfileHandler, requests *RequestHandler, catalog *CatalogHandler) {
	me := r.router.Group("/me")
	me.Get("/profile", profile.GetProfile)
	me.Put("/profile", profile.UpdateProfile)
	me.Get("/requests", requests.GetMyRequests)
	me.Get("/approved-books", requests.GetApprovedBooks)
	me.Get("/dashboard", catalog.GetStudentDashboard)
}

func (r *Router) registerAdminRoutes(profile *ProfileHandler, catalog *CatalogHandler) {
	students := r.router.Group("/students")
	students.Get("/", profile.GetStudents)
	students.Get("/search", catalog.SearchStudents)

	r.router.Get("/admin/dashboard", catalog.GetAdminDashboard)
}
