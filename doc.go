// Package morphs provides an animated-transition engine for
// declarative visualizations.
//
// A morph is a bundle of partial visualization specs (states),
// reactive values (signals), and animated paths between states
// (transitions).  The engine watches each running visualization,
// decides which morphs apply to its current spec, and drives
// tweened transitions through an apply/stop contract when the
// transitions' triggers hold.
//
// The definitions are in package 'core', pattern matching is in
// 'match', keyframe synthesis is in 'keyframe', signals are in
// 'signal', and the lifecycle is in 'engine'.  Package 'sio' couples
// an engine to the outside world, and some command-line tools are in
// `cmd`.
package morphs
