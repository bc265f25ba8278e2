package webapi

import (
	"fmt"

	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/amirasaad/eventoolkit/pkg/domain/room"
	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/gofiber/fiber/v2"
)

// PostMessageRequest is the body of POST /room/messages.
type PostMessageRequest struct {
	User string `json:"user" validate:"required,max=64"`
	Text string `json:"text" validate:"required,max=4096"`
}

// MembershipRequest is the body of POST /room/members and DELETE
// /room/members.
type MembershipRequest struct {
	User string `json:"user" validate:"required,max=64"`
}

// RoomRoutes registers the chat-room endpoints.
func RoomRoutes(app *fiber.App, deps config.Deps) {
	app.Get("/room", GetRoom(deps))
	app.Post("/room/members", JoinRoom(deps))
	app.Delete("/room/members", LeaveRoom(deps))
	app.Post("/room/messages", PostMessage(deps))
}

// GetRoom returns the current room state.
func GetRoom(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Room fetched",
			Data:    deps.Room.State(),
		})
	}
}

// JoinRoom publishes a UserJoined event.
func JoinRoom(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[MembershipRequest](c)
		if input == nil {
			return err // error response already written
		}
		return publish(c, deps, room.NewUserJoined(input.User), "User joined")
	}
}

// LeaveRoom publishes a UserLeft event.
func LeaveRoom(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[MembershipRequest](c)
		if input == nil {
			return err // error response already written
		}
		return publish(c, deps, room.NewUserLeft(input.User), "User left")
	}
}

// PostMessage publishes a MessagePosted event.
func PostMessage(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[PostMessageRequest](c)
		if input == nil {
			return err // error response already written
		}
		return publish(c, deps, room.NewMessagePosted(input.User, input.Text), "Message posted")
	}
}

func publish(c *fiber.Ctx, deps config.Deps, event eventbus.Event, message string) error {
	if err := deps.Publisher.Publish(c.UserContext(), event); err != nil {
		status := ErrorToStatusCode(err)
		if status == fiber.StatusInternalServerError {
			deps.Logger.Error("failed to publish event", "error", err, "event_type", fmt.Sprintf("%T", event))
		}
		return ErrorResponseJSON(c, status, ErrorTitle(status), err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(Response{
		Status:  fiber.StatusCreated,
		Message: message,
		Data:    deps.Room.State(),
	})
}
