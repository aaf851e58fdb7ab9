// Package geometry holds the vector math exported by the Wasm builds.
package geometry

import "math"

// Size returns the Euclidean norm of the vector (x, y), the hypotenuse of a
// right triangle with legs x and y.
//
// The squares are summed without rescaling, so NaN inputs yield NaN and
// components whose squares overflow yield +Inf.
func Size(x, y float64) float64 {
	return math.Sqrt(x*x + y*y)
}
