package replay

import (
	"github.com/samber/do/v2"

	"transcript-restream-service/internal/service/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Scheduler, error) {
		return NewScheduler(do.MustInvoke[*session.Registry](i)), nil
	})
}
