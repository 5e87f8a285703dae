package components

import "gonum.org/v1/gonum/spatial/r2"

// Kinematics holds a particle's motion state.
type Kinematics struct {
	Pos    r2.Vec // live position
	Stable r2.Vec // position last used for grid placement
	Dir    r2.Vec // unit heading
	Vel    r2.Vec
	Acc    r2.Vec // accumulated steering, decayed each integration

	MinSpeedSq float64
	MaxSpeedSq float64
}
