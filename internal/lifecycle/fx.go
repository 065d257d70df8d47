package lifecycle

import (
	"github.com/saasbench/saasbench/internal/lifecycle/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lifecycle.simulator",
	fx.Provide(func(p service.ServiceParam) Simulator { return service.NewService(p) }),
)
