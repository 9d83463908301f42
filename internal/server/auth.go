package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionCookie   = "session"
	tokenIssuer     = "yatube"
	tokenAudience   = "yatube-web"
	revokedPrefix   = "blacklist:"
	viewerLocalsKey = "viewer"
)

// Viewer is the signed-in user as carried by the session token.
type Viewer struct {
	ID       uint
	Username string
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// issueSession signs a session token for user and sets it as an HTTP-only cookie.
func (s *Server) issueSession(c *fiber.Ctx, user *models.User) error {
	token, expires, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// generateToken creates a JWT for the given user ID and username
func (s *Server) generateToken(userID uint, username string) (string, time.Time, error) {
	if s.config.JWTSecret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	expires := now.Add(s.config.SessionTTL())
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	return signed, expires, err
}

// parseToken validates signature, issuer, audience and expiry, then checks revocation.
func (s *Server) parseToken(ctx context.Context, raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.ID != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, revokedPrefix+claims.ID).Result()
		if err == nil && revoked > 0 {
			return nil, errors.New("token has been revoked")
		}
	}
	return claims, nil
}

// LoadViewer resolves the session cookie, if any, into the viewer and userID locals.
// Invalid or revoked cookies are cleared and the request continues anonymously.
func (s *Server) LoadViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(sessionCookie)
		if raw == "" {
			return c.Next()
		}

		claims, err := s.parseToken(c.UserContext(), raw)
		if err != nil {
			c.ClearCookie(sessionCookie)
			return c.Next()
		}
		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || userID == 0 {
			c.ClearCookie(sessionCookie)
			return c.Next()
		}

		c.Locals("userID", uint(userID))
		c.Locals(viewerLocalsKey, &Viewer{ID: uint(userID), Username: claims.Username})
		return c.Next()
	}
}

// AuthRequired redirects anonymous visitors to the login page, keeping the requested path in next.
// A session whose user no longer exists is cleared and treated as anonymous.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		loginURL := "/auth/login/?next=" + url.QueryEscape(c.OriginalURL())
		v := viewerFrom(c)
		if v == nil {
			return c.Redirect(loginURL, fiber.StatusFound)
		}
		if _, err := s.userService.GetByID(c.UserContext(), v.ID); err != nil {
			if !models.IsNotFound(err) {
				return err
			}
			c.ClearCookie(sessionCookie)
			c.Locals("userID", nil)
			c.Locals(viewerLocalsKey, nil)
			return c.Redirect(loginURL, fiber.StatusFound)
		}
		return c.Next()
	}
}

// revokeSession blacklists the current token until it would have expired and clears the cookie.
func (s *Server) revokeSession(c *fiber.Ctx) {
	defer c.ClearCookie(sessionCookie)

	raw := c.Cookies(sessionCookie)
	if raw == "" || s.redis == nil {
		return
	}
	claims, err := s.parseToken(c.UserContext(), raw)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	if err := s.redis.Set(c.UserContext(), revokedPrefix+claims.ID, 1, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", "error", err)
	}
}

func viewerFrom(c *fiber.Ctx) *Viewer {
	v, _ := c.Locals(viewerLocalsKey).(*Viewer)
	return v
}

// safeNext accepts only local absolute paths as a post-login redirect target.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
