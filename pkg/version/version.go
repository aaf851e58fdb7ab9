// Package version adapts output-parameter version queries into owned values.
//
// Libraries such as libebur128 report their release through three writable
// integer locations. Query keeps that convention at the boundary and hands
// callers a Triple; Report renders it into a new string on every call.
package version

import (
	"errors"
	"fmt"
	"math"
)

// ErrVersionUnavailable is returned when a Querier leaves any destination unset.
var ErrVersionUnavailable = errors.New("library did not report a version")

// unset marks destinations a Querier has not written to. No release number
// can take this value.
const unset = math.MinInt

// Querier is implemented by libraries that report their version through
// output parameters.
type Querier interface {
	GetVersion(major, minor, patch *int)
}

// QuerierFunc adapts a plain function to Querier.
type QuerierFunc func(major, minor, patch *int)

// GetVersion calls f.
func (f QuerierFunc) GetVersion(major, minor, patch *int) {
	f(major, minor, patch)
}

// Triple is a (major, minor, patch) release version.
type Triple struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// String renders the triple as "major.minor.patch". Fields are written
// verbatim, negative ones included.
func (t Triple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

// Query asks q for its version and copies the result into a Triple.
func Query(q Querier) (Triple, error) {
	if q == nil {
		return Triple{}, ErrVersionUnavailable
	}

	major, minor, patch := unset, unset, unset
	q.GetVersion(&major, &minor, &patch)

	if major == unset || minor == unset || patch == unset {
		return Triple{}, ErrVersionUnavailable
	}
	return Triple{Major: major, Minor: minor, Patch: patch}, nil
}

// Report returns q's version formatted as "major.minor.patch".
func Report(q Querier) (string, error) {
	t, err := Query(q)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}
