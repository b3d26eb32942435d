package runtime

import (
	"context"
	"time"

	"github.com/deckhand-sh/deckhand/pkg/descriptor"
	"github.com/deckhand-sh/deckhand/pkg/types"
)

// Runtime is the container runtime collaborator the lifecycle
// controller drives. Implementations replace any previous instance on
// Apply and tolerate stopping an instance that does not exist.
type Runtime interface {
	// Apply creates and starts the service instance described by d,
	// replacing a previous instance of the same name. It returns the
	// container ID.
	Apply(ctx context.Context, d descriptor.Descriptor) (string, error)

	// Stop tears down the named instance, waiting up to grace before
	// force-killing. Stopping a non-existent instance is a no-op.
	Stop(ctx context.Context, name string, grace time.Duration) error

	// Status reports the current runtime state of the named instance.
	Status(ctx context.Context, name string) (types.RuntimeStatus, error)
}
