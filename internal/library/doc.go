// Package library manages reusable audio assets: per-user imports charged to
// the owner's storage quota, globally shared clips, and a drop-folder watcher
// that registers files copied straight into the shared library directory.
package library
