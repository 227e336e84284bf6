package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/chipper/pkg/telemetry"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		endpoint string
		err      bool
	}{
		"disabled": {},
		"grpc":     {endpoint: "http://localhost:4317"},
		"relative": {endpoint: "localhost", err: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := &telemetry.Config{OTLPEndpoint: tc.endpoint}

			err := c.Validate()
			if tc.err {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.endpoint != "", c.Enabled())
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := telemetry.Setup(t.Context(), &telemetry.Config{}, "chipper")
	require.NoError(t, err)
	require.NoError(t, shutdown(t.Context()))

	shutdown, err = telemetry.Setup(t.Context(), nil, "chipper")
	require.NoError(t, err)
	require.NoError(t, shutdown(t.Context()))
}

func TestSetup_Enabled(t *testing.T) {
	// Registers a global provider.
	shutdown, err := telemetry.Setup(t.Context(), &telemetry.Config{OTLPEndpoint: "http://192.0.2.1:4317"}, "chipper")
	require.NoError(t, err)
	require.NoError(t, shutdown(t.Context()))
}
