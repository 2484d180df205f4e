package api

import (
	"github.com/gofiber/fiber/v2"
	"lms.com/internal/domain"
)

// CatalogHandler 处理分类、搜索与首页看板
type CatalogHandler struct {
	catalog domain.CatalogService
	search  domain.SearchService
}

func NewCatalogHandler(catalog domain.CatalogService, search domain.SearchService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, search: search}
}

// GetCategories
// GET /api/categories
func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(categories)
}

type CategoryRequest struct {
	Name string `json:"Name"`
}

// CreateCategory
// POST /api/categories
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}

	category, err := h.catalog.CreateCategory(c.UserContext(), actor, req.Name)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// GetCategoryBooks
// GET /api/categories/:id/books
func (h *CatalogHandler) GetCategoryBooks(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	category, books, err := h.catalog.CategoryBooks(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"Category": category,
		"Books":    books,
	})
}

// SearchBooks 按书名、作者或分类搜索
// GET /api/search/books?query=
func (h *CatalogHandler) SearchBooks(c *fiber.Ctx) error {
	query := c.Query("query")
	books, err := h.search.SearchBooks(c.UserContext(), query)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"Query": query,
		"Books": books,
	})
}

// SearchStudents 按用户名或学号搜索学生
// GET /api/students/search?query=
func (h *CatalogHandler) SearchStudents(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	query := c.Query("query")
	students, err := h.search.SearchStudents(c.UserContext(), actor, query)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"Query":    query,
		"Students": students,
	})
}

// GetStudentDashboard
// GET /api/me/dashboard
func (h *CatalogHandler) GetStudentDashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	dash, err := h.catalog.StudentDashboard(c.UserContext(), actor)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dash)
}

// GetAdminDashboard
// GET /api/admin/dashboard
func (h *CatalogHandler) GetAdminDashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	dash, err := h.catalog.AdminDashboard(c.UserContext(), actor)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dash)
}
