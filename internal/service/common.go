package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"lms.com/internal/domain"
	"lms.com/internal/model"
)

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return domain.NewForbiddenError("administrator role required")
	}
	return nil
}

func requireStudent(actor domain.Actor) error {
	if !actor.IsStudent() {
		return domain.NewForbiddenError("student role required")
	}
	return nil
}

// loadStudent resolves the Student row of a student actor.
func loadStudent(ctx context.Context, db *gorm.DB, actor domain.Actor) (*model.Student, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	var student model.Student
	if err := db.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("student record not found")
		}
		return nil, domain.NewInternalError("failed to load student", err)
	}
	return &student, nil
}

// likePattern builds a case-insensitive LIKE pattern for a substring match.
// LIKE wildcards in the query are escaped so they match literally.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(query)) + "%"
}

func normalizePage(page, pageSize, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxSize {
		pageSize = defaultSize
	}
	return page, pageSize
}

func publish(p domain.EventPublisher, eventType string, data interface{}) {
	if p != nil {
		p.Publish(eventType, data)
	}
}
