// Package sequencer turns a goal task into an execution plan of stages and runs it.
//
// A plan is the dependency closure of the goals, layered with Kahn's algorithm: every
// stage holds tasks with no mutual dependency whose prerequisites all sit in earlier
// stages. Run executes stages in order and the members of one stage concurrently.
//
// Failure policy: when a task fails, the other members of its stage are allowed to
// finish, then the run stops. Later stages never start and their tasks are reported
// as not run.
package sequencer
