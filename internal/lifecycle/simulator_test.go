package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/saasbench/saasbench/internal/lifecycle/service"
)

func TestConcreteServiceSatisfiesSimulator(t *testing.T) {
	var sim Simulator = service.NewService(service.ServiceParam{Log: zap.NewNop()})
	assert.NotNil(t, sim)
}
