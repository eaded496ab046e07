// Package build turns a loaded configuration into a runnable project.
//
// It registers one task per configured task, wires each task's steps to transform
// adapters, and adds the steps only a build can provide: dest (persist through the
// output router), changed (skip files whose outputs are newer) and the clean builtin.
// All execution paths (CLI run, watch loop, scheduler) go through BuildService.
package build
