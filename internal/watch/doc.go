// Package watch turns filesystem changes into incremental rebuilds.
//
// A Source (normally FSSource) feeds FileEvents into a bounded channel. The
// Debouncer groups bursts into batches and the Loop maps each batch through
// the configured Rules to a set of goal tasks, runs them through a
// build.BuildService and tells connected browsers what to refresh:
//
//	idle → watching → triggered → executing → watching
//	                                   ↘ failed → watching
//
// Changes arriving while a build executes are queued and folded into the next
// cycle; running tasks are never interrupted.
package watch
