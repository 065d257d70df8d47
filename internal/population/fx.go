package population

import (
	"github.com/saasbench/saasbench/internal/population/service"
	"go.uber.org/fx"
)

var Module = fx.Module("population.generator",
	fx.Provide(service.NewService),
)
