package livepush

import (
	"github.com/samber/do/v2"

	"transcript-restream-service/internal/events"
	"transcript-restream-service/internal/service/replay"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		sched := do.MustInvoke[*replay.Scheduler](i)
		pub := do.MustInvoke[*events.Publisher](i)
		return NewServer(sched, pub), nil
	})
}
