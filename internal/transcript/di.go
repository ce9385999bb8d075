package transcript

import (
	"github.com/samber/do/v2"

	"transcript-restream-service/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Loader, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewLoader(cfg.Transcripts.Dir), nil
	})
}
