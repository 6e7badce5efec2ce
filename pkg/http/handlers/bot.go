package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/streamguard/pkg/http/requests"
	"github.com/oarkflow/streamguard/pkg/http/responses"
)

// PostBotUpload accepts a bot submission that has already passed the
// input guard and echoes what was received.
func PostBotUpload(c *fiber.Ctx) error {
	input, err := requests.Collect(c)
	if err != nil {
		return responses.Error(c, err)
	}
	fields := make([]string, 0, len(input))
	for k := range input {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var files []fiber.Map
	if form, err := c.MultipartForm(); err == nil {
		for name, headers := range form.File {
			for _, h := range headers {
				files = append(files, fiber.Map{"field": name, "filename": h.Filename, "size": h.Size})
			}
		}
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"fields":  fields,
		"files":   len(files),
		"uploads": files,
	})
}
