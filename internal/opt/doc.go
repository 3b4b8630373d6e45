// Package opt searches for short round trips through points on the plane.
//
// Two strategies are provided: BruteForce, which is exact but only practical
// for a dozen or so points, and Annealing, a simulated annealing heuristic
// over 2-opt moves. Both run behind Algorithm, which owns the run/stop
// lifecycle, the runtime timer and the per-run event channel.
package opt
