// Package config loads, normalizes, and validates podstudio's TOML
// configuration, and centralizes the on-disk layout helpers (episode upload
// directories, final audio paths, library directories).
package config
