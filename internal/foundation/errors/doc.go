// Package errors provides the classified error primitives used across assetbuilder.
//
// A ClassifiedError carries a category (config, task, transform, route, ...), a
// severity, a human readable message, an optional cause and structured context
// such as the task name or the offending file path. Errors are created through the
// fluent ErrorBuilder:
//
//	err := errors.TaskError("task failed").
//		WithContext("task", name).
//		WithCause(cause).
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
