// Package store declares the persistence contracts for resources, content
// blocks, learning units, ingestions and background tasks, plus the
// transaction helper shared by the SQL implementations in platform/postgres.
package store
