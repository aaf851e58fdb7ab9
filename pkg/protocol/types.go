// Package protocol holds the result types the wasmdemo CLI prints in JSON mode.
package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float is a float64 whose JSON form keeps NaN and infinities as the strings
// "NaN", "+Inf" and "-Inf". Finite values are plain JSON numbers.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return json.Marshal(f.String())
	default:
		return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
	}
}

func (f *Float) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "NaN":
			*f = Float(math.NaN())
		case "+Inf", "Inf":
			*f = Float(math.Inf(1))
		case "-Inf":
			*f = Float(math.Inf(-1))
		default:
			return fmt.Errorf("invalid float %q", s)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// String formats f the way fmt prints a float64 with %v.
func (f Float) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// SizeResult is the outcome of a size call.
type SizeResult struct {
	Artifact string `json:"artifact,omitempty"` // empty for the native implementation
	X        Float  `json:"x"`
	Y        Float  `json:"y"`
	Size     Float  `json:"size"`
}

// VersionResult is the outcome of a get_version call.
type VersionResult struct {
	Artifact string `json:"artifact,omitempty"`
	Version  string `json:"version"`
	Major    int    `json:"major"`
	Minor    int    `json:"minor"`
	Patch    int    `json:"patch"`
}

// ArtifactInfo describes a loaded artifact.
type ArtifactInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Library     string   `json:"library,omitempty"`
	Description string   `json:"description,omitempty"`
	Exports     []string `json:"exports"`
	Source      string   `json:"source"`
	SizeBytes   int64    `json:"sizeBytes"`
}
