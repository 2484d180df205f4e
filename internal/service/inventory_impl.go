package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"
	"lms.com/internal/constants"
	"lms.com/internal/domain"
	"lms.com/internal/event"
	"lms.com/internal/model"
	"lms.com/internal/validation"
)

// InventoryServiceImpl 实现 domain.InventoryService 接口
type InventoryServiceImpl struct {
	db        *gorm.DB
	publisher domain.EventPublisher
}

// NewInventoryService 创建库存服务
func NewInventoryService(db *gorm.DB, publisher domain.EventPublisher) *InventoryServiceImpl {
	return &InventoryServiceImpl{db: db, publisher: publisher}
}

func bookPayload(b *model.Book) event.BookPayload {
	return event.BookPayload{
		BookID:          b.ID,
		Title:           b.Title,
		Available:       b.Available,
		AvailableCopies: b.AvailableCopies,
	}
}

// CreateBook 新增图书，分类必须存在
func (s *InventoryServiceImpl) CreateBook(ctx context.Context, actor domain.Actor, form domain.NewBook) (*model.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	form.Title = strings.TrimSpace(form.Title)
	form.Author = strings.TrimSpace(form.Author)
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	book := model.Book{
		Title:           form.Title,
		Author:          form.Author,
		CategoryID:      form.CategoryID,
		AvailableCopies: form.AvailableCopies,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category model.Category
		if err := tx.First(&category, form.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewValidationError(map[string]string{"CategoryID": "Select a valid category."})
			}
			return domain.NewInternalError("failed to load category", err)
		}
		if err := tx.Create(&book).Error; err != nil {
			return domain.NewInternalError("failed to create book", err)
		}
		book.Category = &category
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("InventoryService: Book created: %d %q (%d copies)", book.ID, book.Title, book.AvailableCopies)
	publish(s.publisher, constants.EventBookCreated, bookPayload(&book))
	return &book, nil
}

// DeleteBook 删除图书及其借阅申请
func (s *InventoryServiceImpl) DeleteBook(ctx context.Context, actor domain.Actor, bookID uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	var book model.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("book not found")
			}
			return domain.NewInternalError("failed to load book", err)
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&model.BookRequest{}).Error; err != nil {
			return domain.NewInternalError("failed to delete book requests", err)
		}
		if err := tx.Delete(&model.Book{}, bookID).Error; err != nil {
			return domain.NewInternalError("failed to delete book", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("InventoryService: Book deleted: %d", bookID)
	book.Available = false
	book.AvailableCopies = 0
	publish(s.publisher, constants.EventBookDeleted, bookPayload(&book))
	return nil
}

// ToggleAvailability 切换图书的下架状态
//
// The toggle flips the withdrawn hold; Available is then derived from the hold
// and the copy count, so it never contradicts AvailableCopies.
func (s *InventoryServiceImpl) ToggleAvailability(ctx context.Context, actor domain.Actor, bookID uint) (*model.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var book model.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Book{}).
			Where("id = ?", bookID).
			UpdateColumn("withdrawn", gorm.Expr("NOT withdrawn"))
		if result.Error != nil {
			return domain.NewInternalError("failed to toggle availability", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("book not found")
		}
		return syncAvailable(tx, bookID, &book)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("InventoryService: Book %d withdrawn=%t available=%t", book.ID, book.Withdrawn, book.Available)
	publish(s.publisher, constants.EventAvailabilityChanged, bookPayload(&book))
	return &book, nil
}

// AdjustCopies 增减一本库存
//
// The change is a single conditional UPDATE so concurrent adjustments cannot
// lose each other; a decrement never takes the count below zero.
func (s *InventoryServiceImpl) AdjustCopies(ctx context.Context, actor domain.Actor, bookID uint, action domain.CopyAction) (*model.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var book model.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&model.Book{}).Where("id = ?", bookID)
		var result *gorm.DB
		switch action {
		case domain.CopyIncrement:
			result = query.UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
		case domain.CopyDecrement:
			result = query.Where("available_copies > 0").
				UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
		default:
			return domain.NewBadRequestError("action must be increment or decrement")
		}
		if result.Error != nil {
			return domain.NewInternalError("failed to adjust copies", result.Error)
		}

		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&model.Book{}).Where("id = ?", bookID).Count(&exists).Error; err != nil {
				return domain.NewInternalError("failed to load book", err)
			}
			if exists == 0 {
				return domain.NewNotFoundError("book not found")
			}
			return domain.NewInsufficientInventoryError()
		}
		return syncAvailable(tx, bookID, &book)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("InventoryService: Book %d copies %s -> %d", book.ID, action, book.AvailableCopies)
	publish(s.publisher, constants.EventCopiesAdjusted, bookPayload(&book))
	return &book, nil
}

// syncAvailable reloads the book and stores the derived Available flag.
func syncAvailable(tx *gorm.DB, bookID uint, book *model.Book) error {
	if err := tx.First(book, bookID).Error; err != nil {
		return domain.NewInternalError("failed to reload book", err)
	}
	available := book.IsAvailable()
	if available != book.Available {
		if err := tx.Model(&model.Book{}).Where("id = ?", bookID).
			UpdateColumn("available", available).Error; err != nil {
			return domain.NewInternalError("failed to update availability", err)
		}
		book.Available = available
	}
	return nil
}

// GetBook 获取图书详情
func (s *InventoryServiceImpl) GetBook(ctx context.Context, bookID uint) (*model.Book, error) {
	var book model.Book
	if err := s.db.WithContext(ctx).Preload("Category").First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("book not found")
		}
		return nil, domain.NewInternalError("failed to load book", err)
	}
	return &book, nil
}

// ListBooks 分页获取图书
func (s *InventoryServiceImpl) ListBooks(ctx context.Context, filter domain.BookFilter, page, pageSize int) ([]model.Book, int64, error) {
	page, pageSize = normalizePage(page, pageSize, 20, 100)

	query := s.db.WithContext(ctx).Model(&model.Book{})
	if filter.Available != nil {
		query = query.Where("available = ?", *filter.Available)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to count books", err)
	}

	var books []model.Book
	if err := query.Preload("Category").
		Order("title ASC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&books).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to fetch books", err)
	}
	return books, total, nil
}

// ListAvailableBooks 可借阅的全部图书，按书名排序
func (s *InventoryServiceImpl) ListAvailableBooks(ctx context.Context) ([]model.Book, error) {
	books := []model.Book{}
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("available = ?", true).
		Order("title ASC, id ASC").
		Find(&books).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch available books", err)
	}
	return books, nil
}

// 确保实现了接口
var _ domain.InventoryService = (*InventoryServiceImpl)(nil)
