package domain

import (
	"context"
	"io"
	"time"

	"lms.com/internal/model"
)

// Actor 发起操作的已认证用户
type Actor struct {
	UserID uint
	Role   model.Role
}

func (a Actor) IsAdmin() bool   { return a.Role == model.RoleAdmin }
func (a Actor) IsStudent() bool { return a.Role == model.RoleStudent }

// ===========================
// 账户服务接口
// ===========================

// StudentRegistration 学生注册表单
type StudentRegistration struct {
	Username  string `json:"Username" validate:"required,max=150"`
	Email     string `json:"Email" validate:"required,email"`
	Password  string `json:"Password" validate:"required,min=8"`
	Password2 string `json:"Password2" validate:"required,eqfield=Password"`
	StudentNo string `json:"StudentNo" validate:"required,max=32"`
	Grade     string `json:"Grade" validate:"required,max=10"`
}

// AdminRegistration 管理员注册表单
type AdminRegistration struct {
	Username  string `json:"Username" validate:"required,max=150"`
	Email     string `json:"Email" validate:"required,email"`
	Password  string `json:"Password" validate:"required,min=8"`
	Password2 string `json:"Password2" validate:"required,eqfield=Password"`
	StaffRole string `json:"StaffRole" validate:"required,max=50"`
}

// Session is the result of a successful login or registration.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
	Redirect  string // 按角色跳转的页面
}

// AccountService 定义注册、登录等账户操作
type AccountService interface {
	RegisterStudent(ctx context.Context, form StudentRegistration) (*Session, error)
	RegisterAdmin(ctx context.Context, form AdminRegistration) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	Me(ctx context.Context, userID uint) (*model.User, error)
	IsActive(ctx context.Context, userID uint) (bool, error)
	EnsureAdmin(ctx context.Context, username, password, email string) error
}

// ===========================
// 借阅流程接口
// ===========================

// RequestService 定义借阅申请与审批
type RequestService interface {
	RequestBook(ctx context.Context, actor Actor, bookID uint) (*model.BookRequest, error)
	ApproveRequest(ctx context.Context, actor Actor, requestID uint) (*model.BookRequest, error)
	ListPendingRequests(ctx context.Context, actor Actor, page, pageSize int) ([]model.BookRequest, int64, error)
	ListApprovedBooks(ctx context.Context, actor Actor) ([]model.Book, error)
	ListMyRequests(ctx context.Context, actor Actor) ([]model.BookRequest, error)
}

// ===========================
// 库存服务接口
// ===========================

// CopyAction 库存调整动作
type CopyAction string

const (
	CopyIncrement CopyAction = "increment"
	CopyDecrement CopyAction = "decrement"
)

// NewBook 新增图书表单
type NewBook struct {
	Title           string `json:"Title" validate:"required,max=255"`
	Author          string `json:"Author" validate:"required,max=255"`
	CategoryID      uint   `json:"CategoryID" validate:"required"`
	AvailableCopies int    `json:"AvailableCopies" validate:"gte=0"`
}

// NewCategory 新增分类表单
type NewCategory struct {
	Name string `json:"Name" validate:"required,max=100"`
}

// BookFilter 图书列表过滤条件
type BookFilter struct {
	Available *bool
}

// InventoryService 定义图书库存管理
type InventoryService interface {
	CreateBook(ctx context.Context, actor Actor, form NewBook) (*model.Book, error)
	DeleteBook(ctx context.Context, actor Actor, bookID uint) error
	ToggleAvailability(ctx context.Context, actor Actor, bookID uint) (*model.Book, error)
	AdjustCopies(ctx context.Context, actor Actor, bookID uint, action CopyAction) (*model.Book, error)
	GetBook(ctx context.Context, bookID uint) (*model.Book, error)
	ListBooks(ctx context.Context, filter BookFilter, page, pageSize int) ([]model.Book, int64, error)
	ListAvailableBooks(ctx context.Context) ([]model.Book, error)
}

// ===========================
// 分类与看板接口
// ===========================

// StudentDashboard 学生首页数据
type StudentDashboard struct {
	StudentNo        string       `json:"StudentNo"`
	AvailableBooks   []model.Book `json:"AvailableBooks"`
	UnavailableBooks []model.Book `json:"UnavailableBooks"`
}

// AdminDashboard 管理员首页数据
type AdminDashboard struct {
	Books        []model.Book     `json:"Books"`
	Categories   []model.Category `json:"Categories"`
	PendingCount int64            `json:"PendingCount"`
}

// CatalogService 定义分类与看板
type CatalogService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, actor Actor, name string) (*model.Category, error)
	CategoryBooks(ctx context.Context, categoryID uint) (*model.Category, []model.Book, error)
	StudentDashboard(ctx context.Context, actor Actor) (*StudentDashboard, error)
	AdminDashboard(ctx context.Context, actor Actor) (*AdminDashboard, error)
}

// ===========================
// 搜索接口
// ===========================

// SearchService 定义图书和学生搜索
type SearchService interface {
	SearchBooks(ctx context.Context, query string) ([]model.Book, error)
	SearchStudents(ctx context.Context, actor Actor, query string) ([]model.Student, error)
}

// ===========================
// 用户资料接口
// ===========================

// PictureUpload 上传的头像文件
type PictureUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ProfileService 定义用户资料相关操作
type ProfileService interface {
	GetProfile(ctx context.Context, userID uint) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uint, bio string, picture *PictureUpload) (*model.UserProfile, error)
	ListStudents(ctx context.Context, actor Actor, page, pageSize int) ([]model.Student, int64, error)
}

// ===========================
// 基础设施接口
// ===========================

// TokenStore 记录已注销的 token
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ObjectStorage 存放头像等文件
type ObjectStorage interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)
}

// EventPublisher 发布业务事件
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// Notifier 定义推送通知的接口
type Notifier interface {
	// 推送给所有管理员连接
	BroadcastToRole(role model.Role, data interface{})
	// 推送给指定用户的所有连接
	PushToUser(userID uint, data interface{})
}
