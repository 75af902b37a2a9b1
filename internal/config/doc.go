// Package config loads and validates the astroserve YAML configuration.
//
// Load(path) parses the `server:` section, fills defaults, and rejects
// structurally invalid settings. Secret material (static auth tokens,
// webhook URLs) is named in the file but resolved from environment
// variables, never stored inline. Watch(ctx, path, onChange) hot-reloads
// the file on write so webhook targets can change without a restart.
package config
