package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"lms.com/internal/domain"
)

// BookHandler 处理图书与库存相关的 HTTP 请求
type BookHandler struct {
	inventory domain.InventoryService
}

// NewBookHandler 创建图书处理器
func NewBookHandler(inventory domain.InventoryService) *BookHandler {
	return &BookHandler{inventory: inventory}
}

// GetBooks 分页获取图书，可按 ?available=true|false 过滤
// GET /api/books
func (h *BookHandler) GetBooks(c *fiber.Ctx) error {
	var filter domain.BookFilter
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "available must be true or false"})
		}
		filter.Available = &available
	}

	page, pageSize := pageParams(c, 20)
	books, total, err := h.inventory.ListBooks(c.UserContext(), filter, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return SendPaginatedResponse(c, books, page, pageSize, total)
}

// GetAvailableBooks 可借阅图书列表
// GET /api/books/available
func (h *BookHandler) GetAvailableBooks(c *fiber.Ctx) error {
	books, err := h.inventory.ListAvailableBooks(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(books)
}

// GetBook 获取图书详情
// GET /api/books/:id
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	book, err := h.inventory.GetBook(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(book)
}

// CreateBook 新增图书
// POST /api/books
func (h *BookHandler) CreateBook(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	var req domain.NewBook
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}

	book, err := h.inventory.CreateBook(c.UserContext(), actor, req)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// DeleteBook 删除图书
// DELETE /api/books/:id
func (h *BookHandler) DeleteBook(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	if err := h.inventory.DeleteBook(c.UserContext(), actor, id); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Book deleted"})
}

// ToggleAvailability 上架/下架图书
// POST /api/books/:id/availability
func (h *BookHandler) ToggleAvailability(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	book, err := h.inventory.ToggleAvailability(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(book)
}

type CopiesRequest struct {
	Action domain.CopyAction `json:"Action"`
}

// AdjustCopies 增减一本库存
// POST /api/books/:id/copies
func (h *BookHandler) AdjustCopies(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	var req CopiesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request body"})
	}

	book, err := h.inventory.AdjustCopies(c.UserContext(), actor, id, req.Action)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(book)
}
