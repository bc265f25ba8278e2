package config

import (
	"log/slog"

	"github.com/amirasaad/eventoolkit/infra/repository/journal"
	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/amirasaad/eventoolkit/pkg/domain/room"
	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/amirasaad/eventoolkit/pkg/factory"
	"github.com/amirasaad/eventoolkit/pkg/observer"
	"github.com/amirasaad/eventoolkit/pkg/store"
)

// Deps holds everything the server and the CLI are built from. Journal is
// nil when the journal is disabled.
type Deps struct {
	Publisher *eventbus.Publisher
	Registry  *factory.Registry
	Bridge    *bridge.InputBridge
	Observer  *observer.EventsObserver
	Room      *store.Store[room.State]
	Journal   journal.Repository
	Logger    *slog.Logger
	Config    *App
}
