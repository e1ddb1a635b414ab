package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/scenforge/scenforge/errors"
)

func TestResolveCapabilitiesBoundaries(t *testing.T) {
	tests := []struct {
		version string
		want    Capabilities
	}{
		{"4.2.0", Capabilities{WriteOutputCSV: true}},
		{"4.3.0", Capabilities{UniqueComponentNames: true, WriteOutputCSV: true}},
		{"5.0.0", Capabilities{UniqueComponentNames: true, WriteOutputCSV: true, ProtectedLandEmissions: true}},
		{"5.1.0", Capabilities{UniqueComponentNames: true, WriteOutputCSV: true, ProtectedLandEmissions: true}},
		{"5.1.1", Capabilities{UniqueComponentNames: true, FlatInputLayout: true, WriteOutputCSV: true, ProtectedLandEmissions: true}},
		{"5.1.2", Capabilities{UniqueComponentNames: true, FlatInputLayout: true, RestartFiles: true, ProtectedLandEmissions: true}},
		{"6.0.0", Capabilities{UniqueComponentNames: true, FlatInputLayout: true, RestartFiles: true, ProtectedLandEmissions: true}},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			caps, err := ResolveCapabilities(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, caps)
		})
	}
}

func TestResolveCapabilitiesOutOfRange(t *testing.T) {
	for _, version := range []string{"4.1.9", "3.0.0", "8.0.0", "9.1.0"} {
		_, err := ResolveCapabilities(version)
		require.Error(t, err, "version %s", version)
		assert.ErrorIs(t, err, errUtils.ErrUnknownVersion)
	}
}

func TestResolveCapabilitiesUnparsable(t *testing.T) {
	_, err := ResolveCapabilities("not-a-version")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrUnknownVersion)
}
