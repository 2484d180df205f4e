package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"lms.com/internal/auth"
	"lms.com/internal/constants"
	"lms.com/internal/domain"
	"lms.com/internal/event"
	"lms.com/internal/model"
	"lms.com/internal/validation"
)

const (
	AdminHome   = "/admin/dashboard"
	StudentHome = "/student/dashboard"
)

// AccountServiceImpl 实现 domain.AccountService 接口
type AccountServiceImpl struct {
	db         *gorm.DB
	tokens     *auth.TokenManager
	tokenStore domain.TokenStore // nil disables revocation
	publisher  domain.EventPublisher
	hashCost   int
}

// NewAccountService 创建账户服务
func NewAccountService(db *gorm.DB, tokens *auth.TokenManager, tokenStore domain.TokenStore, publisher domain.EventPublisher) *AccountServiceImpl {
	return &AccountServiceImpl{
		db:         db,
		tokens:     tokens,
		tokenStore: tokenStore,
		publisher:  publisher,
		hashCost:   bcrypt.DefaultCost,
	}
}

func (s *AccountServiceImpl) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", domain.NewInternalError("crypto error", err)
	}
	return string(hashed), nil
}

// createUser inserts the user, its role row and an empty profile in one
// transaction. Username and student number uniqueness are checked up front to
// return field errors instead of a constraint violation.
func (s *AccountServiceImpl) createUser(ctx context.Context, user *model.User, roleRow interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return domain.NewInternalError("failed to check username", err)
		}
		if count > 0 {
			return domain.NewValidationError(map[string]string{"Username": "A user with that username already exists."})
		}

		if student, ok := roleRow.(*model.Student); ok {
			if err := tx.Model(&model.Student{}).Where("student_no = ?", student.StudentNo).Count(&count).Error; err != nil {
				return domain.NewInternalError("failed to check student id", err)
			}
			if count > 0 {
				return domain.NewValidationError(map[string]string{"StudentNo": "This student ID is already in use."})
			}
		}

		if err := tx.Omit("Student", "Admin", "Profile").Create(user).Error; err != nil {
			return domain.NewConflictError("username already exists")
		}

		switch row := roleRow.(type) {
		case *model.Student:
			row.UserID = user.ID
			if err := tx.Create(row).Error; err != nil {
				return domain.NewInternalError("failed to create student", err)
			}
			user.Student = row
		case *model.Admin:
			row.UserID = user.ID
			if err := tx.Create(row).Error; err != nil {
				return domain.NewInternalError("failed to create admin", err)
			}
			user.Admin = row
		}

		profile := &model.UserProfile{UserID: user.ID}
		if err := tx.Create(profile).Error; err != nil {
			return domain.NewInternalError("failed to create profile", err)
		}
		user.Profile = profile
		return nil
	})
}

func (s *AccountServiceImpl) session(user *model.User) (*domain.Session, error) {
	redirect, err := homeFor(user.Role)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.NewInternalError("failed to sign token", err)
	}
	return &domain.Session{Token: token, ExpiresAt: exp, User: user, Redirect: redirect}, nil
}

func homeFor(role model.Role) (string, error) {
	switch role {
	case model.RoleAdmin:
		return AdminHome, nil
	case model.RoleStudent:
		return StudentHome, nil
	}
	return "", domain.NewNoRoleAssignedError()
}

func (s *AccountServiceImpl) announce(user *model.User) {
	log.Printf("AccountService: Registered %s %q (id %d)", user.Role, user.Username, user.ID)
	publish(s.publisher, constants.EventUserRegistered, event.UserPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
}

// RegisterStudent 学生注册，成功后直接登录
func (s *AccountServiceImpl) RegisterStudent(ctx context.Context, form domain.StudentRegistration) (*domain.Session, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.StudentNo = strings.TrimSpace(form.StudentNo)
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	hashed, err := s.hash(form.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: form.Username,
		Email:    form.Email,
		Password: hashed,
		Role:     model.RoleStudent,
		IsActive: true,
	}
	if err := s.createUser(ctx, user, &model.Student{StudentNo: form.StudentNo, Grade: form.Grade}); err != nil {
		return nil, err
	}
	s.announce(user)
	return s.session(user)
}

// RegisterAdmin 管理员注册，成功后直接登录
func (s *AccountServiceImpl) RegisterAdmin(ctx context.Context, form domain.AdminRegistration) (*domain.Session, error) {
	form.Username = strings.TrimSpace(form.Username)
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	hashed, err := s.hash(form.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: form.Username,
		Email:    form.Email,
		Password: hashed,
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	if err := s.createUser(ctx, user, &model.Admin{StaffRole: form.StaffRole}); err != nil {
		return nil, err
	}
	s.announce(user)
	return s.session(user)
}

// Login 校验用户名密码并按角色给出跳转
//
// A user with no role is rejected explicitly rather than logged in.
func (s *AccountServiceImpl) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.NewInvalidCredentialsError()
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewInvalidCredentialsError()
		}
		return nil, domain.NewInternalError("failed to load user", err)
	}
	if !user.IsActive {
		return nil, domain.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, domain.NewInvalidCredentialsError()
	}

	sess, err := s.session(&user)
	if err != nil {
		log.Printf("AccountService: Login rejected for %q: %v", user.Username, err)
		return nil, err
	}
	return sess, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AccountServiceImpl) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.tokenStore == nil {
		return nil
	}
	if err := s.tokenStore.Revoke(ctx, tokenID, time.Until(expiresAt)); err != nil {
		return domain.NewInternalError("failed to revoke token", err)
	}
	return nil
}

// Me 获取当前用户及其角色信息
func (s *AccountServiceImpl) Me(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Admin").
		Preload("Profile").
		First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user not found")
		}
		return nil, domain.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

// IsActive reports whether the user still exists and is not deactivated.
func (s *AccountServiceImpl) IsActive(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return false, domain.NewInternalError("failed to check account status", err)
	}
	return count > 0, nil
}

// EnsureAdmin creates the bootstrap administrator when no administrator exists.
func (s *AccountServiceImpl) EnsureAdmin(ctx context.Context, username, password, email string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return domain.NewInternalError("failed to count admins", err)
	}
	if count > 0 {
		return nil
	}
	if username == "" || password == "" {
		log.Println("AccountService: No administrator exists and no bootstrap admin is configured")
		return nil
	}

	log.Printf("AccountService: No administrator found. Creating %q...", username)
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	user := &model.User{Username: username, Email: email, Password: hashed, Role: model.RoleAdmin, IsActive: true}
	if err := s.createUser(ctx, user, &model.Admin{StaffRole: "Librarian"}); err != nil {
		return err
	}
	s.announce(user)
	return nil
}

var _ domain.AccountService = (*AccountServiceImpl)(nil)
