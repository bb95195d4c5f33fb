// Package session issues the anonymous shopper identity that keys carts and
// orders. The token is the id of a Fiber session kept in a cookie.
package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

// LocalsKey is where the middleware stores the session token.
const LocalsKey = "session_token"

const cookieName = "session_id"

type Config struct {
	Storage fiber.Storage // nil means in-process memory
	TTL     time.Duration
	Secure  bool
}

type Manager struct {
	store *fibersession.Store
}

func NewManager(cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{store: fibersession.New(fibersession.Config{
		Storage:        cfg.Storage,
		Expiration:     ttl,
		KeyLookup:      "cookie:" + cookieName,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Secure,
		CookieSameSite: "Lax",
	})}
}

// Middleware loads or creates the caller's session and exposes its id
// through TokenFromCtx. A fresh session is saved immediately so the cookie
// reaches the browser on the first response.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := m.store.Get(c)
		if err != nil {
			return apperror.Respond(c, err)
		}
		token := sess.ID()
		if sess.Fresh() {
			sess.Set("created_at", time.Now().UTC().Unix())
			if err := sess.Save(); err != nil {
				return apperror.Respond(c, err)
			}
		}
		c.Locals(LocalsKey, token)
		return c.Next()
	}
}

// TokenFromCtx returns the session token set by the middleware.
func TokenFromCtx(c *fiber.Ctx) (string, error) {
	token, ok := c.Locals(LocalsKey).(string)
	if !ok || token == "" {
		return "", apperror.ErrUnauthorized
	}
	return token, nil
}
