package webapi

import (
	"errors"

	"github.com/amirasaad/eventoolkit/pkg/domain/room"
	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/amirasaad/eventoolkit/pkg/factory"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

// ErrorResponseJSON returns a response following RFC 9457 Problem Details
func ErrorResponseJSON(
	c *fiber.Ctx,
	status int,
	title string,
	detail any,
) error {
	pd := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")

	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps event creation and handling errors to HTTP status
// codes.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, factory.ErrEmptyMessage),
		errors.Is(err, factory.ErrMalformedMessage),
		errors.Is(err, eventbus.ErrNilEvent):
		return fiber.StatusBadRequest
	case errors.Is(err, factory.ErrUnknownEventType),
		errors.Is(err, factory.ErrInvalidEvent):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, room.ErrAlreadyMember),
		errors.Is(err, room.ErrNotMember):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorTitle returns the problem title for status.
func ErrorTitle(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "Invalid event"
	case fiber.StatusUnprocessableEntity:
		return "Event rejected"
	case fiber.StatusConflict:
		return "Event conflicts with room state"
	default:
		return "Internal Server Error"
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and
// returns a nil struct along with the result of writing the response.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	}
	return &input, nil
}
