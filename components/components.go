// Package components defines ECS components for the flocking simulation.
package components

// Immortal marks a particle without a time of death.
const Immortal = -1.0

// Ungrouped is the group id of particles that flock with every other ungrouped particle.
const Ungrouped = -1
