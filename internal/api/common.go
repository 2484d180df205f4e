package api

import (
	"errors"
	"log"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"lms.com/internal/api/middleware"
	"lms.com/internal/domain"
)

// Pagination 元数据结构
type Pagination struct {
	Page      int   `json:"Page"`      // 当前页码
	PageSize  int   `json:"PageSize"`  // 每页条数
	Total     int64 `json:"Total"`     // 总记录数
	TotalPage int   `json:"TotalPage"` // 总页数
}

// ListResponse 统一的分页响应结构
type ListResponse struct {
	Data       interface{} `json:"Data"`       // 数据列表
	Pagination Pagination  `json:"Pagination"` // 分页信息
}

// SendPaginatedResponse 发送标准的分页响应
func SendPaginatedResponse(c *fiber.Ctx, data interface{}, page, pageSize int, total int64) error {
	totalPage := 0
	if pageSize > 0 {
		totalPage = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	return c.JSON(ListResponse{
		Data: data,
		Pagination: Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	})
}

// pageParams reads ?page= and ?pageSize=; the services clamp them.
func pageParams(c *fiber.Ctx, defaultSize int) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("pageSize", defaultSize)
	if pageSize < 1 {
		pageSize = defaultSize
	}
	return page, pageSize
}

// handleError 将业务错误转换为 HTTP 响应
func handleError(c *fiber.Ctx, err error) error {
	status := domain.StatusOf(err)

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		if status >= fiber.StatusInternalServerError {
			log.Printf("API: %s %s failed: %v", c.Method(), c.Path(), err)
			return c.Status(status).JSON(fiber.Map{"Error": appErr.Message})
		}
		body := fiber.Map{"Error": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["Fields"] = appErr.Fields
		}
		return c.Status(status).JSON(body)
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("API: %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"Error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"Error": err.Error()})
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.NewBadRequestError("invalid " + name)
	}
	return uint(id), nil
}

// actorFrom returns the authenticated user set by the auth middleware.
func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Actor{}, domain.NewUnauthorizedError("authentication required")
	}
	return domain.Actor{UserID: identity.UserID, Role: identity.Role}, nil
}
