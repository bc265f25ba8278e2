package webapi

import (
	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/gofiber/fiber/v2"
)

// EventRoutes registers the raw event ingress.
func EventRoutes(app *fiber.App, deps config.Deps) {
	app.Post("/events", PostEvent(deps))
	app.Get("/events/types", ListEventTypes(deps))
}

// PostEvent hands the request body, an event envelope, to the input bridge.
func PostEvent(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := deps.Logger.With("handler", "PostEvent")
		if err := deps.Bridge.OnMessage(c.UserContext(), string(c.Body())); err != nil {
			status := ErrorToStatusCode(err)
			if status == fiber.StatusInternalServerError {
				log.Error("failed to publish event", "error", err)
			}
			return ErrorResponseJSON(c, status, ErrorTitle(status), err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(Response{
			Status:  fiber.StatusAccepted,
			Message: "Event published",
		})
	}
}

// EventType describes an event the ingress accepts.
type EventType struct {
	Name   string `json:"name"`
	GoType string `json:"go_type"`
}

// ListEventTypes lists the events the ingress accepts, sorted by wire name.
func ListEventTypes(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names := deps.Registry.Names()
		types := make([]EventType, 0, len(names))
		for _, name := range names {
			if t, ok := deps.Registry.TypeOf(name); ok {
				types = append(types, EventType{Name: name, GoType: t.String()})
			}
		}
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Event types fetched",
			Data:    types,
		})
	}
}
