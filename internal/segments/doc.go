// Package segments manages episode timelines: segment creation from uploads
// or shared library assets, ordering, destructive audio edits with caption
// remapping, and transcript lifecycle. Every edit follows the same ordering:
// the new revision and its sidecar land on disk first, the database row flips
// second, and the previous owned revision is deleted last.
package segments
