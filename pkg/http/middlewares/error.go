package middlewares

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/http/responses"
)

// SendError answers JSON clients with the standard error body. Browser form
// posts are redirected back with the message in the query string and the
// failed URI kept in the flash cookie.
func SendError(c *fiber.Ctx, err error) error {
	if wantsJSON(c) {
		return responses.Error(c, err)
	}
	lastURI := c.OriginalURL()
	if !isAssetURI(lastURI) {
		c = flash.WithData(c, fiber.Map{"last_visited_uri": lastURI})
	}
	message := errs.MsgSystem
	var e *errs.Error
	if errors.As(err, &e) && e.Kind != errs.KindSystem {
		message = e.Message
	}
	back := c.Get(fiber.HeaderReferer)
	if back == "" {
		back = "/"
	}
	sep := "?"
	if strings.Contains(back, "?") {
		sep = "&"
	}
	return c.Redirect(back+sep+"error="+url.QueryEscape(message), fiber.StatusSeeOther)
}

func wantsJSON(c *fiber.Ctx) bool {
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	if strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
		return true
	}
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMEApplicationJSON
}

func isAssetURI(uri string) bool {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	return path.Ext(uri) != ""
}
