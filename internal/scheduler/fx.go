package scheduler

import (
	"github.com/smallbiznis/netbill/internal/scheduler/guard"
	"github.com/smallbiznis/netbill/internal/scheduler/repository"
	"go.uber.org/fx"
)

// Module builds the scheduler with every job registered. Triggers only run
// when Lifecycle is also included, so one-shot commands can reuse it.
var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(repository.NewRunRepository),
	fx.Provide(guard.NewSingleFlight),
	fx.Provide(New),
	fx.Invoke(RegisterJobs),
)

var Lifecycle = fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
})
