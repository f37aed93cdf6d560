// Package room implements the single-room chat coordinator using the actor pattern.
//
// One goroutine owns the session registry and reacts to join, leave, frame and
// stop commands in strict sequence (no mutexes). Broadcasts marshal once and
// fan out through per-connection write goroutines; sessions whose sends fail
// are marked during the fan-out pass and swept from the registry afterwards.
package room
