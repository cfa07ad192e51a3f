// Package config loads hlsladder's TOML configuration, fills defaults and
// validates the result.
package config
