// Package variant renders one template many times, once per target, as
// background jobs with progress, per-target failure isolation and
// cooperative cancellation.
package variant
