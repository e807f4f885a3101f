package handlers

import (
	"errors"
	"log"

	"orderd/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(Response{Success: true, Data: data})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.AuthMissing, apperr.AuthInvalid:
		return fiber.StatusUnauthorized
	case apperr.Forbidden:
		return fiber.StatusForbidden
	case apperr.NotFound:
		return fiber.StatusNotFound
	case apperr.Validation, apperr.InvalidState:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders any error returned by a handler or middleware as an envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := StatusFor(appErr.Kind)
		if status == fiber.StatusInternalServerError {
			log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(status).JSON(Response{Message: appErr.Message, Errors: appErr.Fields})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(Response{Message: fiberErr.Message})
	}

	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(Response{Message: "Internal server error"})
}

// bind parses the request body into out.
func bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return apperr.Wrap(apperr.Validation, "Invalid request body", err)
	}
	return nil
}
