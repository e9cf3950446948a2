package services

import "strings"

// maxActorIDLength bounds caller identities; anything longer is a client bug.
const maxActorIDLength = 128

// ValidActorID reports whether a caller-supplied identity is safe to use as a
// single path component under the library root and as a database key. The
// identity arrives on every request as a header, so it is untrusted input
// until it passes here. "global" is reserved for the shared library
// directory.
func ValidActorID(id string) bool {
	if id == "" || len(id) > maxActorIDLength {
		return false
	}
	if id == "." || id == ".." || id == "global" {
		return false
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return false
	}
	return true
}
