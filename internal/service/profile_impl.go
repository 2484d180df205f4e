package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"lms.com/internal/domain"
	"lms.com/internal/model"
)

// ProfileServiceImpl 实现 domain.ProfileService 接口
type ProfileServiceImpl struct {
	db      *gorm.DB
	storage domain.ObjectStorage // nil when no bucket is configured
}

// NewProfileService 创建用户资料服务
func NewProfileService(db *gorm.DB, storage domain.ObjectStorage) *ProfileServiceImpl {
	return &ProfileServiceImpl{db: db, storage: storage}
}

// GetProfile returns the profile provisioned at registration. Reading never
// creates one.
func (s *ProfileServiceImpl) GetProfile(ctx context.Context, userID uint) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := s.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("profile not found")
		}
		return nil, domain.NewInternalError("failed to load profile", err)
	}
	return &profile, nil
}

// UpdateProfile 更新简介；提供新头像时上传并替换，否则保留原头像
func (s *ProfileServiceImpl) UpdateProfile(ctx context.Context, userID uint, bio string, picture *domain.PictureUpload) (*model.UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"bio": bio}
	if picture != nil {
		if s.storage == nil {
			return nil, domain.NewBadRequestError("profile picture storage is not configured")
		}
		key, err := s.storage.Upload(ctx, fmt.Sprintf("profiles/%d/", userID), picture.Filename, picture.Body, picture.ContentType)
		if err != nil {
			return nil, domain.NewInternalError("failed to store profile picture", err)
		}
		updates["profile_picture"] = key
	}

	if err := s.db.WithContext(ctx).Model(&model.UserProfile{ID: profile.ID}).Updates(updates).Error; err != nil {
		return nil, domain.NewInternalError("failed to update profile", err)
	}

	log.Printf("ProfileService: Profile updated for user %d", userID)
	return s.GetProfile(ctx, userID)
}

// ListStudents 获取全部学生及其资料
func (s *ProfileServiceImpl) ListStudents(ctx context.Context, actor domain.Actor, page, pageSize int) ([]model.Student, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	page, pageSize = normalizePage(page, pageSize, 50, 200)

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Student{}).Count(&total).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to count students", err)
	}

	var students []model.Student
	if err := s.db.WithContext(ctx).
		Preload("User.Profile").
		Order("student_no ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&students).Error; err != nil {
		return nil, 0, domain.NewInternalError("failed to fetch students", err)
	}
	return students, total, nil
}

var _ domain.ProfileService = (*ProfileServiceImpl)(nil)
