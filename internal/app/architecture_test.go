package app_test

import (
	"testing"

	"github.com/mstrYoda/go-arctest/pkg/arctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mod = `github\.com/Nazarious-ucu/weather-line-bot`

func TestLayeredArchitecture(t *testing.T) {
	arch, err := arctest.New("../../")
	require.NoError(t, err)

	err = arch.ParsePackages()
	require.NoError(t, err, "failed to parse packages")

	domainLayer, err := arctest.NewLayer("domain", `^`+mod+`/internal/(models|dates|intent)`)
	require.NoError(t, err)

	observabilityLayer, err := arctest.NewLayer("observability",
		`^`+mod+`/internal/(metrics|services/logger)`,
		`^`+mod+`/pkg/logger`,
	)
	require.NoError(t, err)

	appLayer, err := arctest.NewLayer("application", `^`+mod+`/internal/(conversation|notifier)`)
	require.NoError(t, err)

	infraLayer, err := arctest.NewLayer("infrastructure",
		`^`+mod+`/internal/(repository/sqlite|services/weather|services/cache|services/line|producers|consumer)`,
		`^`+mod+`/(pkg/messaging|migrations)`,
	)
	require.NoError(t, err)

	userLayer, err := arctest.NewLayer("transport", `^`+mod+`/internal/handlers`)
	require.NoError(t, err)

	layered := arch.NewLayeredArchitecture(domainLayer, observabilityLayer, appLayer, infraLayer, userLayer)

	assert.NoError(t, observabilityLayer.DependsOnLayer(domainLayer))

	assert.NoError(t, appLayer.DependsOnLayer(domainLayer))
	assert.NoError(t, appLayer.DependsOnLayer(observabilityLayer))

	assert.NoError(t, infraLayer.DependsOnLayer(domainLayer))
	assert.NoError(t, infraLayer.DependsOnLayer(observabilityLayer))

	assert.NoError(t, userLayer.DependsOnLayer(domainLayer))
	assert.NoError(t, userLayer.DependsOnLayer(observabilityLayer))
	assert.NoError(t, userLayer.DependsOnLayer(appLayer))

	violations, err := layered.Check()
	require.NoError(t, err)

	assert.Len(t, violations, 0)

	for _, v := range violations {
		assert.Failf(t, "", "violation: %s", v)
	}
}
