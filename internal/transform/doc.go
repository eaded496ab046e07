// Package transform defines the adapter contract between build tasks and the tools
// that actually rewrite file contents.
//
// An Adapter takes a batch of in-memory files and returns a new batch. Adapters never
// mutate their inputs. Two error policies exist: PerFile drops a failing file and keeps
// going, Batch fails the whole step. Concrete adapters (sass, minify, imagemin, ...) are
// created from configuration through a Catalog.
package transform
