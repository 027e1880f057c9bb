// Package config loads settings from the environment, optionally seeded from a
// .env file in the working directory. Every variable carries the
// SCREEN_COORDS_ prefix; see Config for the fields and FromEnv for defaults.
package config
