package requests

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
)

var ErrMalformedBody = errors.New("requests: malformed body")

func malformed(cause error) error {
	e := errs.Validation(map[string][]string{"body": {"The request body could not be read."}})
	e.Cause = errors.Join(ErrMalformedBody, cause)
	return e
}

// Collect reads the request body into a flat field map. JSON objects are
// taken as-is; urlencoded and multipart forms contribute their first value
// per key. Uploaded files are not part of the result.
func Collect(c *fiber.Ctx) (models.Input, error) {
	input := make(models.Input)
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		body := c.Body()
		if len(body) == 0 {
			return input, nil
		}
		if err := json.Unmarshal(body, &input); err != nil {
			return nil, malformed(err)
		}
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, malformed(err)
		}
		for k, values := range form.Value {
			if len(values) > 0 {
				input[k] = values[0]
			}
		}
	default:
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			k := string(key)
			if _, seen := input[k]; !seen {
				input[k] = string(value)
			}
		})
	}
	return input, nil
}
