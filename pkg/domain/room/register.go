package room

import (
	"errors"

	"github.com/amirasaad/eventoolkit/pkg/factory"
)

// Register adds the room events to r under their wire names.
func Register(r *factory.Registry) error {
	return errors.Join(
		factory.RegisterType[UserJoined](r, UserJoinedName),
		factory.RegisterType[UserLeft](r, UserLeftName),
		factory.RegisterType[MessagePosted](r, MessagePostedName),
	)
}
