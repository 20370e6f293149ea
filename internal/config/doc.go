// Package config loads, normalizes, and validates the TOML configuration
// shared by the reelsmith daemon and CLI.
//
// Load resolves the config file location, applies repository defaults for
// anything the file omits, expands ~ in path values, and rejects
// configurations the daemon cannot run with. Provider API keys are optional;
// an absent key disables that provider in its fallback chain.
package config
