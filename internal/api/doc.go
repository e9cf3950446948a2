// Package api defines the HTTP wire types shared by the daemon's server and
// the CLI client, along with converters from the storage models. Server
// filesystem paths never cross this boundary.
package api
