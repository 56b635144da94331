package realtime

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/events"
)

// HandlerFunc processes one pushed event.
type HandlerFunc func(ctx context.Context, env events.Envelope) error

// Source delivers pushed events until ctx is done.
type Source interface {
	Run(ctx context.Context, h HandlerFunc) error
}
