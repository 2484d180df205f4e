package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"
	"lms.com/internal/domain"
	"lms.com/internal/model"
	"lms.com/internal/validation"
)

// CatalogServiceImpl 实现 domain.CatalogService 接口
type CatalogServiceImpl struct {
	db *gorm.DB
}

// NewCatalogService 创建分类服务
func NewCatalogService(db *gorm.DB) *CatalogServiceImpl {
	return &CatalogServiceImpl{db: db}
}

// ListCategories 获取全部分类
func (s *CatalogServiceImpl) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch categories", err)
	}
	return categories, nil
}

// CreateCategory 新增分类；名称不做唯一约束
func (s *CatalogServiceImpl) CreateCategory(ctx context.Context, actor domain.Actor, name string) (*model.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	form := domain.NewCategory{Name: strings.TrimSpace(name)}
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	category := model.Category{Name: form.Name}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, domain.NewInternalError("failed to create category", err)
	}
	log.Printf("CatalogService: Category created: %d %q", category.ID, category.Name)
	return &category, nil
}

// CategoryBooks 获取分类下的图书
func (s *CatalogServiceImpl) CategoryBooks(ctx context.Context, categoryID uint) (*model.Category, []model.Book, error) {
	var category model.Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.NewNotFoundError("category not found")
		}
		return nil, nil, domain.NewInternalError("failed to load category", err)
	}

	var books []model.Book
	if err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("title ASC, id ASC").
		Find(&books).Error; err != nil {
		return nil, nil, domain.NewInternalError("failed to fetch books", err)
	}
	return &category, books, nil
}

// StudentDashboard 学生首页：可借与不可借图书
func (s *CatalogServiceImpl) StudentDashboard(ctx context.Context, actor domain.Actor) (*domain.StudentDashboard, error) {
	student, err := loadStudent(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}

	dash := &domain.StudentDashboard{StudentNo: student.StudentNo}
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("available = ?", true).Order("title ASC").
		Find(&dash.AvailableBooks).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch available books", err)
	}
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("available = ?", false).Order("title ASC").
		Find(&dash.UnavailableBooks).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch unavailable books", err)
	}
	return dash, nil
}

// AdminDashboard 管理员首页：全部图书、分类与待审批数量
func (s *CatalogServiceImpl) AdminDashboard(ctx context.Context, actor domain.Actor) (*domain.AdminDashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	dash := &domain.AdminDashboard{}
	if err := s.db.WithContext(ctx).Preload("Category").Order("title ASC").Find(&dash.Books).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch books", err)
	}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&dash.Categories).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch categories", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.BookRequest{}).
		Where("is_approved = ?", false).Count(&dash.PendingCount).Error; err != nil {
		return nil, domain.NewInternalError("failed to count pending requests", err)
	}
	return dash, nil
}

var _ domain.CatalogService = (*CatalogServiceImpl)(nil)
