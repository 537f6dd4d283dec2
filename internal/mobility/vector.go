// Cartesian positions for simulated endpoints
package mobility

import (
	"fmt"
	"math"
)

// Vector is a position in metres.
type Vector struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// DistanceTo returns the straight-line distance between two points.
func (v Vector) DistanceTo(other Vector) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vector) String() string {
	return fmt.Sprintf("(%g,%g,%g)", v.X, v.Y, v.Z)
}
