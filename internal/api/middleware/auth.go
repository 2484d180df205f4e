package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"lms.com/internal/auth"
	"lms.com/internal/domain"
	"lms.com/internal/model"
)

const identityKey = "identity"

// Identity is the authenticated caller, stored in fiber Locals.
type Identity struct {
	UserID    uint
	Username  string
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// IdentityFrom returns the identity stored by CasbinMiddleware.
func IdentityFrom(c *fiber.Ctx) (*Identity, bool) {
	identity, ok := c.Locals(identityKey).(*Identity)
	return identity, ok && identity != nil
}

var (
	errMissingToken = errors.New("missing token")
	errRevoked      = errors.New("token revoked")
)

// Authenticate verifies a raw token and checks that it was not logged out.
// revoked may be nil when no revocation store is configured.
func Authenticate(ctx context.Context, tokens *auth.TokenManager, revoked domain.TokenStore, raw string) (*Identity, error) {
	if raw == "" {
		return nil, errMissingToken
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if revoked != nil {
		isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if isRevoked {
			return nil, errRevoked
		}
	}

	identity := &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// policyPath drops the trailing slash that non-strict routing still accepts,
// so "/api/books/" is checked against the same policy as "/api/books".
func policyPath(path string) string {
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}

// AccountStatus reports whether the account behind a token may still use the API.
type AccountStatus interface {
	IsActive(ctx context.Context, userID uint) (bool, error)
}

// CasbinMiddleware checks permissions for the request using JWT claims.
// accounts may be nil, in which case a token stays usable until it expires.
func CasbinMiddleware(enforcer *casbin.Enforcer, tokens *auth.TokenManager, revoked domain.TokenStore, accounts AccountStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. 校验 Token
		identity, err := Authenticate(c.UserContext(), tokens, revoked, bearerToken(c))
		if err != nil {
			if errors.Is(err, errMissingToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Missing Authorization header"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Invalid or expired token"})
		}

		// 2. 账户被删除或停用后 token 立即失效
		if accounts != nil {
			active, err := accounts.IsActive(c.UserContext(), identity.UserID)
			if err != nil {
				log.Printf("Auth: Account status check failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Account check failed"})
			}
			if !active {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Account is inactive or deleted"})
			}
		}

		// 3. 账户必须有角色
		if !identity.Role.Valid() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"Error": "No role assigned to this account"})
		}
		c.Locals(identityKey, identity)

		// 4. 以角色作为 Casbin subject 检查权限
		sub := string(identity.Role)
		obj := policyPath(c.Path())
		act := c.Method()

		permit, err := enforcer.Enforce(sub, obj, act)
		if err != nil {
			log.Printf("Auth: Permission check failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"Error": "Permission check failed"})
		}
		if permit {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"Error":  "Permission denied",
			"Detail": fmt.Sprintf("Role %s is not allowed to %s %s", sub, act, obj),
		})
	}
}
