// Package daemon hosts the long-running podstudio process: the HTTP API,
// the library drop-folder watcher, and the single-instance lock.
package daemon
