// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.4.0"

// UserAgent identifies the tool to the TAP services it queries.
const UserAgent = "ls-constellations/" + Version + " (constellation renderer data pipeline)"

// Milestones:
// 0.4.0 - Prometheus metrics, rate-limited API, TOML/YAML constellation definitions
// 0.3.0 - Gaia cross-match distance, Bubble Tea manual entry form, Postgres store
// 0.2.0 - Render-frame remap (celestial north up), SQLite store, populate job
// 0.1.0 - Initial release: SIMBAD resolver, designation names, parallax distances
