package agentsim

import "github.com/gofiber/fiber/v2"

// DetailResponse is the error body the planning agent answers with
type DetailResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(DetailResponse{Detail: message})
}

func validationError(c *fiber.Ctx, message string, fields map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(DetailResponse{Detail: message, Errors: fields})
}

func badRequest(c *fiber.Ctx, message string) error {
	return detail(c, fiber.StatusBadRequest, message)
}

func notFound(c *fiber.Ctx, message string) error {
	return detail(c, fiber.StatusNotFound, message)
}

func conflict(c *fiber.Ctx, message string) error {
	return detail(c, fiber.StatusConflict, message)
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

// errorHandler renders unhandled errors in the agent's {"detail": ...} shape
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, isFiber := err.(*fiber.Error); isFiber {
		code = e.Code
	}
	return detail(c, code, err.Error())
}
