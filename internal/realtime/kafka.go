package realtime

import (
	"context"
	"log/slog"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/segmentio/kafka-go"
)

type consumer interface {
	Start(ctx context.Context, h kafkax.Handler) error
}

// KafkaSource reads envelopes a relay published on the push topic.
type KafkaSource struct {
	c consumer
}

func NewKafkaSource(c *kafkax.Consumer) *KafkaSource {
	return &KafkaSource{c: c}
}

func (s *KafkaSource) Run(ctx context.Context, h HandlerFunc) error {
	return s.c.Start(ctx, func(ctx context.Context, m kafka.Message) error {
		env, err := kafkax.UnmarshalEnvelope(m.Value)
		if err != nil {
			// poison message: log and let it be committed
			slog.Error("drop undecodable push event", "offset", m.Offset, "error", err)
			return nil
		}
		return h(ctx, env)
	})
}
