package webapi

import (
	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/gofiber/fiber/v2"
)

// JournalEntry is an entry as returned by GET /journal.
type JournalEntry struct {
	ID         string `json:"id"`
	EventType  string `json:"event_type"`
	Envelope   string `json:"envelope"`
	RecordedAt string `json:"recorded_at"`
}

// JournalRoutes registers the journal endpoints when the journal is enabled.
func JournalRoutes(app *fiber.App, deps config.Deps) {
	if deps.Journal == nil {
		return
	}
	app.Get("/journal", ListJournal(deps))
}

// ListJournal returns the most recent journal entries. The optional type and
// limit query parameters filter the result.
func ListJournal(deps config.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid query", "limit must be between 1 and 500")
		}
		entries, err := deps.Journal.List(c.UserContext(), c.Query("type"), limit)
		if err != nil {
			deps.Logger.Error("failed to list journal", "error", err)
			return ErrorResponseJSON(c, fiber.StatusInternalServerError, "Internal Server Error", err.Error())
		}
		out := make([]JournalEntry, len(entries))
		for i, e := range entries {
			out[i] = JournalEntry{
				ID:         e.ID.String(),
				EventType:  e.EventType,
				Envelope:   string(e.Payload),
				RecordedAt: e.RecordedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Journal fetched",
			Data:    out,
		})
	}
}
