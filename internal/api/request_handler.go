package api

import (
	"github.com/gofiber/fiber/v2"
	"lms.com/internal/domain"
)

// RequestHandler 处理借阅申请相关的 HTTP 请求
type RequestHandler struct {
	requests domain.RequestService
}

// NewRequestHandler 创建借阅申请处理器
func NewRequestHandler(requests domain.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// RequestBook 学生申请借阅
// POST /api/books/:id/requests
func (h *RequestHandler) RequestBook(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	bookID, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	req, err := h.requests.RequestBook(c.UserContext(), actor, bookID)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"Message": "Book request submitted successfully.",
		"Request": req,
	})
}

// GetPendingRequests 获取待审批申请
// GET /api/requests/pending
func (h *RequestHandler) GetPendingRequests(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	page, pageSize := pageParams(c, 20)
	requests, total, err := h.requests.ListPendingRequests(c.UserContext(), actor, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return SendPaginatedResponse(c, requests, page, pageSize, total)
}

// ApproveRequest 审批借阅申请
// POST /api/requests/:id/approve
func (h *RequestHandler) ApproveRequest(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return handleError(c, err)
	}

	req, err := h.requests.ApproveRequest(c.UserContext(), actor, id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(req)
}

// GetMyRequests 获取当前学生的申请
// GET /api/me/requests
func (h *RequestHandler) GetMyRequests(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	requests, err := h.requests.ListMyRequests(c.UserContext(), actor)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(requests)
}

// GetApprovedBooks 获取当前学生已获批的图书
// GET /api/me/approved-books
func (h *RequestHandler) GetApprovedBooks(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	books, err := h.requests.ListApprovedBooks(c.UserContext(), actor)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(books)
}
