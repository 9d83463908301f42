package cache

import (
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Handler serves GET requests from the cache, keyed by the original URL.
// Misses run the route and store 200 responses. Store errors degrade to a pass-through.
func (p *PageCache) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !p.Enabled() || c.Method() != fiber.MethodGet {
			observability.PageCacheLookups.WithLabelValues("bypass").Inc()
			return c.Next()
		}

		ctx := c.UserContext()
		url := c.OriginalURL()

		page, err := p.Get(ctx, url)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "page cache read failed",
				slog.String("url", url), slog.String("error", err.Error()))
		}
		if page != nil {
			observability.PageCacheLookups.WithLabelValues("hit").Inc()
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, page.ContentType)
			return c.Status(page.Status).Send(page.Body)
		}

		observability.PageCacheLookups.WithLabelValues("miss").Inc()
		c.Set("X-Cache", "MISS")
		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		stored := &Page{
			Status:      fiber.StatusOK,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := p.Set(ctx, url, stored); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache write failed",
				slog.String("url", url), slog.String("error", err.Error()))
		}
		return nil
	}
}
