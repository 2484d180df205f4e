package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"lms.com/internal/constants"
	"lms.com/internal/domain"
	"lms.com/internal/event"
	"lms.com/internal/model"
)

// RequestServiceImpl 实现 domain.RequestService 接口
type RequestServiceImpl struct {
	db        *gorm.DB
	publisher domain.EventPublisher
	now       func() time.Time
}

// NewRequestService 创建借阅申请服务
func NewRequestService(db *gorm.DB, publisher domain.EventPublisher) *RequestServiceImpl {
	return &RequestServiceImpl{db: db, publisher: publisher, now: time.Now}
}

// RequestBook 学生申请借阅
//
// An unavailable book or an existing pending request from the same student leaves
// the table untouched. The copy count is not changed at request time.
func (s *RequestServiceImpl) RequestBook(ctx context.Context, actor domain.Actor, bookID uint) (*model.BookRequest, error) {
	student, err := loadStudent(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}

	var req model.BookRequest
	var book model.Book
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("book not found")
			}
			return domain.NewInternalError("failed to load book", err)
		}

		if !book.Available {
			return domain.NewUnavailableError()
		}

		var pending int64
		if err := tx.Model(&model.BookRequest{}).
			Where("student_id = ? AND book_id = ? AND is_approved = ?", student.ID, book.ID, false).
			Count(&pending).Error; err != nil {
			return domain.NewInternalError("failed to check existing requests", err)
		}
		if pending > 0 {
			return domain.NewDuplicatePendingError()
		}

		req = model.BookRequest{StudentID: student.ID, BookID: book.ID}
		if err := tx.Create(&req).Error; err != nil {
			return domain.NewInternalError("failed to create book request", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("RequestService: Student %s requested book %d (request %d)", student.StudentNo, book.ID, req.ID)
	publish(s.publisher, constants.EventRequestCreated, event.RequestPayload{
		RequestID: req.ID,
		BookID:    book.ID,
		BookTitle: book.Title,
		StudentID: student.ID,
		UserID:    actor.UserID,
	})

	req.Book = &book
	return &req, nil
}

// ApproveRequest 管理员审批借阅申请
//
// Approval only flips the flag: it neither reserves a copy nor re-checks
// availability. Approving an approved request returns it unchanged.
func (s *RequestServiceImpl) ApproveRequest(ctx context.Context, actor domain.Actor, requestID uint) (*model.BookRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	now := s.now()
	result := s.db.WithContext(ctx).Model(&model.BookRequest{}).
		Where("id = ? AND is_approved = ?", requestID, false).
		Updates(map[string]interface{}{"is_approved": true, "approved_at": now})
	if result.Error != nil {
		return nil, domain.NewInternalError("failed to approve request", result.Error)
	}
	transitioned := result.RowsAffected > 0

	var req model.BookRequest
	if err := s.db.WithContext(ctx).
		Preload("Book").
		Preload("Student").
		First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("book request not found")
		}
		return nil, domain.NewInternalError("failed to load request", err)
	}

	if transitioned {
		log.Printf("RequestService: Request %d approved by user %d", req.ID, actor.UserID)
		payload := event.RequestPayload{RequestID: req.ID, BookID: req.BookID, StudentID: req.StudentID}
		if req.Book != nil {
			payload.BookTitle = req.Book.Title
		}
		if req.Student != nil {
			payload.UserID = req.Student.UserID
		}
		publish(s.publisher, constants.EventRequestApproved, payload)
	}

	return &req, nil
}

// ListPendingRequests 获取待审批申请，按创建时间升序
func (s *RequestServiceImpl) ListPendingRequests(ctx context.Context, actor domain.Actor, page, pageSize int) ([]model.BookRequest, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	page, pageSize = normalizePage(page, pageSize, 20, 100)

	var requests []model.BookRequest
	var total int64

	query := s.db.WithContext(ctx).Model(&model.BookRequest{}).
		Where("is_approved = ?", false).
		Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to count requests", err)
	}

	if err := query.
		Preload("Book").
		Preload("Student.User").
		Order("created_at ASC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&requests).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to fetch requests", err)
	}

	return requests, total, nil
}

// ListApprovedBooks 获取学生已获批的图书（去重）
func (s *RequestServiceImpl) ListApprovedBooks(ctx context.Context, actor domain.Actor) ([]model.Book, error) {
	student, err := loadStudent(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}

	var requests []model.BookRequest
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND is_approved = ?", student.ID, true).
		Preload("Book.Category").
		Order("approved_at ASC, id ASC").
		Find(&requests).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch approved requests", err)
	}

	seen := make(map[uint]bool, len(requests))
	books := make([]model.Book, 0, len(requests))
	for _, r := range requests {
		if r.Book == nil || seen[r.BookID] {
			continue
		}
		seen[r.BookID] = true
		books = append(books, *r.Book)
	}
	return books, nil
}

// ListMyRequests 获取学生自己的全部申请，最新的在前
func (s *RequestServiceImpl) ListMyRequests(ctx context.Context, actor domain.Actor) ([]model.BookRequest, error) {
	student, err := loadStudent(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}

	var requests []model.BookRequest
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", student.ID).
		Preload("Book").
		Order("created_at DESC, id DESC").
		Find(&requests).Error; err != nil {
		return nil, domain.NewInternalError("failed to fetch requests", err)
	}
	return requests, nil
}

// 确保实现了接口
var _ domain.RequestService = (*RequestServiceImpl)(nil)
