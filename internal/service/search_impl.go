package service

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"lms.com/internal/domain"
	"lms.com/internal/model"
)

const searchLimit = 100

// SearchServiceImpl 实现 domain.SearchService 接口
type SearchServiceImpl struct {
	db *gorm.DB
}

// NewSearchService 创建搜索服务
func NewSearchService(db *gorm.DB) *SearchServiceImpl {
	return &SearchServiceImpl{db: db}
}

// SearchBooks matches title, author or category name, ignoring case.
// An empty query finds nothing.
func (s *SearchServiceImpl) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	books := []model.Book{}
	query = strings.TrimSpace(query)
	if query == "" {
		return books, nil
	}

	pattern := likePattern(query)
	title := clause.Column{Table: clause.CurrentTable, Name: "title"}
	author := clause.Column{Table: clause.CurrentTable, Name: "author"}
	category := clause.Column{Table: "Category", Name: "name"}
	if err := s.db.WithContext(ctx).
		Joins("Category").
		Where(`LOWER(?) LIKE ? ESCAPE '\' OR LOWER(?) LIKE ? ESCAPE '\' OR LOWER(?) LIKE ? ESCAPE '\'`,
			title, pattern, author, pattern, category, pattern).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: title},
			{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}},
		}}).
		Limit(searchLimit).
		Find(&books).Error; err != nil {
		return nil, domain.NewInternalError("failed to search books", err)
	}
	return books, nil
}

// SearchStudents matches username or student number, ignoring case.
// An empty query finds nothing.
func (s *SearchServiceImpl) SearchStudents(ctx context.Context, actor domain.Actor, query string) ([]model.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	students := []model.Student{}
	query = strings.TrimSpace(query)
	if query == "" {
		return students, nil
	}

	pattern := likePattern(query)
	studentNo := clause.Column{Table: clause.CurrentTable, Name: "student_no"}
	if err := s.db.WithContext(ctx).
		Joins("User").
		Where(`LOWER(?) LIKE ? ESCAPE '\' OR LOWER(?) LIKE ? ESCAPE '\'`,
			clause.Column{Table: "User", Name: "username"}, pattern, studentNo, pattern).
		Order(clause.OrderByColumn{Column: studentNo}).
		Limit(searchLimit).
		Find(&students).Error; err != nil {
		return nil, domain.NewInternalError("failed to search students", err)
	}
	return students, nil
}

var _ domain.SearchService = (*SearchServiceImpl)(nil)
