package events

import (
	"github.com/samber/do/v2"

	"transcript-restream-service/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return New(&Config{
			Enabled:      cfg.Kafka.Enabled,
			Brokers:      cfg.Kafka.Brokers,
			TopicRecords: cfg.Kafka.TopicRecords,
			TopicBridge:  cfg.Kafka.TopicBridge,
			Principal:    cfg.Kafka.Principal,
		}), nil
	})
}
