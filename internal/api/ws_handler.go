package api

import (
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"lms.com/internal/api/middleware"
	"lms.com/internal/auth"
	"lms.com/internal/domain"
	"lms.com/internal/infra"
)

const wsIdentityKey = "wsIdentity"

// InitWebsocket 注册 /ws 通知推送端点，token 通过 ?token= 传入
func InitWebsocket(app *fiber.App, hub *infra.WsManager, tokens *auth.TokenManager, revoked domain.TokenStore) {
	// Middleware to force upgrade and authenticate before the handshake
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		identity, err := middleware.Authenticate(c.UserContext(), tokens, revoked, c.Query("token"))
		if err != nil || !identity.Role.Valid() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"Error": "Invalid or expired token"})
		}
		c.Locals(wsIdentityKey, identity)
		return c.Next()
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		identity, ok := c.Locals(wsIdentityKey).(*middleware.Identity)
		if !ok {
			c.Close()
			return
		}
		log.Printf("WS: New connection, user=%d role=%s", identity.UserID, identity.Role)

		client := infra.NewWsClient(c, identity.UserID, identity.Role)
		if !hub.Register(client) {
			c.Close()
			return
		}
		defer hub.Unregister(client)

		// 通知是单向推送，读循环只用于感知断开
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Println("ws read error:", err)
				}
				break
			}
		}
	}))
}
