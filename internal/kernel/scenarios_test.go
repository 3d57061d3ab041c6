package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/internal/kernel"
	"github.com/shashiranjanraj/faultline/pkg/fault"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
	"github.com/shashiranjanraj/faultline/pkg/testkit"
)

func TestAPIScenarios(t *testing.T) {
	testkit.RunDir(t, newKernel(t, nil).Handler(), "testdata/api")
}

// Every store read is dropped, so exports fail and the failure is forwarded
// to the monitor endpoint, which the scenario mocks.
func TestFaultyStoreScenarios(t *testing.T) {
	mon, err := monitor.New(monitor.Config{
		APIKey:    "test-key",
		Endpoint:  "https://monitor.faultline.test/api/events",
		ProjectID: "faultline-test",
	})
	require.NoError(t, err)

	k := newKernel(t, func(o *kernel.Options) {
		o.StoreFaults = fault.Always()
		o.Monitor = mon
	})

	testkit.RunDir(t, k.Handler(), "testdata/faulty", testkit.WithSettle(func(ctx context.Context) error {
		k.Exports.Wait()
		return k.Monitor.Flush(ctx)
	}))
}
