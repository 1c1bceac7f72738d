// Package config loads server, database, auth, model, storage and ingestion
// settings from STUDYLOOP_* environment variables and an optional config
// file, and validates them with struct tags.
package config
