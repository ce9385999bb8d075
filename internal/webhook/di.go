package webhook

import (
	"github.com/samber/do/v2"

	"transcript-restream-service/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewClient(cfg.Webhook.Timeout), nil
	})
}
