package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
	"lms.com/internal/api/middleware"
	"lms.com/internal/domain"
	"lms.com/internal/model"
)

// loginLimiter keeps one token bucket per client IP.
type loginLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &loginLimiter{limit: limit, burst: burst, visitors: make(map[string]*visitor)}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.visitors[ip]
	if !ok {
		// 顺便清理长时间未出现的 IP
		for key, old := range l.visitors {
			if now.Sub(old.lastSeen) > 10*time.Minute {
				delete(l.visitors, key)
			}
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

type AuthHandler struct {
	accounts domain.AccountService
	limiter  *loginLimiter
}

// NewAuthHandler 创建认证处理器，loginRate 为每个 IP 每秒允许的登录次数
func NewAuthHandler(accounts domain.AccountService, loginRate float64, loginBurst int) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		limiter:  newLoginLimiter(loginRate, loginBurst),
	}
}

type LoginRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

type AuthResponse struct {
	Token     string     `json:"Token"`
	ExpiresAt time.Time  `json:"ExpiresAt"`
	ID        uint       `json:"ID"`
	Username  string     `json:"Username"`
	Email     string     `json:"Email"`
	Role      model.Role `json:"Role"`
	Redirect  string     `json:"Redirect"`
}

func sessionResponse(s *domain.Session) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		ID:        s.User.ID,
		Username:  s.User.Username,
		Email:     s.User.Email,
		Role:      s.User.Role,
		Redirect:  s.Redirect,
	}
}

// RegisterStudent 学生注册
// POST /auth/register/student
func (h *AuthHandler) RegisterStudent(c *fiber.Ctx) error {
	var req domain.StudentRegistration
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request"})
	}

	sess, err := h.accounts.RegisterStudent(c.UserContext(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(sess))
}

// RegisterAdmin 管理员注册
// POST /auth/register/admin
func (h *AuthHandler) RegisterAdmin(c *fiber.Ctx) error {
	var req domain.AdminRegistration
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request"})
	}

	sess, err := h.accounts.RegisterAdmin(c.UserContext(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(sess))
}

// Login authenticates the user and returns a JWT plus the role's landing page
// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if !h.limiter.allow(c.IP()) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"Error": "Too many login attempts"})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"Error": "Invalid request"})
	}

	sess, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(sessionResponse(sess))
}

// GetMe 获取当前用户
// GET /api/auth/me
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, err)
	}

	user, err := h.accounts.Me(c.UserContext(), actor.UserID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(user)
}

// Logout revokes the presented token
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Unauthorized"})
	}

	if err := h.accounts.Logout(c.UserContext(), identity.TokenID, identity.ExpiresAt); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"Message": "Logged out successfully"})
}
