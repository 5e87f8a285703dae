package components

// Flock holds identity and group membership.
type Flock struct {
	ID    uint32 // sequential, for debug labels
	Group int    // Ungrouped (-1) or a group id
}

// Lifetime holds spawn/death times and fade markers in simulation seconds.
type Lifetime struct {
	Spawn   float64
	Death   float64 // Immortal or >= Spawn
	FadeIn  float64 // end of the fade-in ramp; <= Spawn disables it
	FadeOut float64 // start of the fade-out ramp; only used when Death is finite
	Fade    float64 // opacity factor from the last update, 0-1
}

// Mortal reports whether the particle has a finite lifetime.
func (l *Lifetime) Mortal() bool {
	return l.Death != Immortal
}

// Expired reports whether the particle is due for removal at now.
func (l *Lifetime) Expired(now float64) bool {
	return l.Death != Immortal && l.Death <= now
}
