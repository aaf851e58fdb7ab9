package ebur128

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/woxQAQ/wasmdemo/pkg/version"
)

func TestGetVersion(t *testing.T) {
	var major, minor, patch int
	GetVersion(&major, &minor, &patch)

	require.Equal(t, VersionMajor, major)
	require.Equal(t, VersionMinor, minor)
	require.Equal(t, VersionPatch, patch)
}

func TestGetVersionNilDestinations(t *testing.T) {
	var minor int
	require.NotPanics(t, func() { GetVersion(nil, &minor, nil) })
	require.Equal(t, VersionMinor, minor)
}

func TestLibraryReport(t *testing.T) {
	s, err := version.Report(Library{})
	require.NoError(t, err)
	require.Equal(t, "1.2.6", s)

	parsed, err := version.Parse(s)
	require.NoError(t, err)
	require.Equal(t, version.Triple{Major: 1, Minor: 2, Patch: 6}, parsed)
}
