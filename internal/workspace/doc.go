// Package workspace manages the build's output directories: the transient working
// directory (.tmp) and the distribution directory (dist).
//
// All paths are resolved below a project root. Cleaning never touches anything outside
// that root, and entries listed as preserved (dist/.git by default) survive a clean.
package workspace
