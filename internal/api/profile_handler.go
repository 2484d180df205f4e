package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"lms.com/internal/domain"
)

const maxPictureSize = 5 << 20

// ProfileHandler 处理用户资料与学生列表
type ProfileHandler struct {
	profiles domain.ProfileService
}

func NewProfileHandler(profiles domain.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile 获取当前用户资料
// GET /api/me/profile
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	profile, err := h.profiles.GetProfile(c.UserContext(), actor.UserID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile 更新简介和头像，表单字段 Bio 与可选文件 ProfilePicture
// PUT /api/me/profile
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	bio := c.FormValue("Bio")

	var picture *domain.PictureUpload
	if fh, err := c.FormFile("ProfilePicture"); err == nil {
		if fh.Size > maxPictureSize {
			return handleError(c, domain.NewValidationError(map[string]string{
				"ProfilePicture": "The image must be at most 5 MB.",
			}))
		}
		contentType := fh.Header.Get(fiber.HeaderContentType)
		if !strings.HasPrefix(contentType, "image/") {
			return handleError(c, domain.NewValidationError(map[string]string{
				"ProfilePicture": "Upload a valid image.",
			}))
		}
		file, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Failed to read uploaded file"})
		}
		defer file.Close()
		picture = &domain.PictureUpload{Filename: fh.Filename, ContentType: contentType, Body: file}
	}

	profile, err := h.profiles.UpdateProfile(c.UserContext(), actor.UserID, bio, picture)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"Message": "Profile updated successfully.",
		"Profile": profile,
	})
}

// GetStudents 管理员查看所有学生
// GET /api/students
func (h *ProfileHandler) GetStudents(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	page, pageSize := pageParams(c, 50)
	students, total, err := h.profiles.ListStudents(c.UserContext(), actor, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return SendPaginatedResponse(c, students, page, pageSize, total)
}
