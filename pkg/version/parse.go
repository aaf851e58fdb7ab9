package version

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// ParseError reports a string that is not a plain "major.minor.patch" version.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// Parse reads a version of the exact form "major.minor.patch": decimal
// fields, no leading zeros, no "v" prefix, no pre-release or build metadata
// and no surrounding whitespace.
func Parse(s string) (Triple, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Triple{}, &ParseError{Input: s, Reason: err.Error()}
	}

	t := Triple{Major: int(v.Major()), Minor: int(v.Minor()), Patch: int(v.Patch())}

	// semver accepts "v1.2", "1.2.3-rc1" and similar; only the canonical
	// rendering of the triple itself is allowed here.
	if t.String() != s {
		return Triple{}, &ParseError{Input: s, Reason: "not in major.minor.patch form"}
	}
	return t, nil
}
