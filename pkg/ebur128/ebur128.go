// Package ebur128 is the version boundary of the libebur128 loudness library
// linked into the Wasm builds.
//
// Only the version query is exposed; loudness measurement itself is out of
// scope for this project.
package ebur128

// Release of libebur128 the builds link against.
const (
	VersionMajor = 1
	VersionMinor = 2
	VersionPatch = 6
)

// GetVersion writes the library release into major, minor and patch, the same
// shape as ebur128_get_version. Nil destinations are skipped.
func GetVersion(major, minor, patch *int) {
	if major != nil {
		*major = VersionMajor
	}
	if minor != nil {
		*minor = VersionMinor
	}
	if patch != nil {
		*patch = VersionPatch
	}
}

// Library satisfies version.Querier.
type Library struct{}

// GetVersion implements version.Querier.
func (Library) GetVersion(major, minor, patch *int) {
	GetVersion(major, minor, patch)
}
