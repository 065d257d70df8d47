package metrics

import (
	"github.com/saasbench/saasbench/internal/metrics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics.aggregator",
	fx.Provide(service.NewService),
)
