// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store and of task.TaskStore. It owns the
// connection setup, the embedded schema migrations, and the mapping
// between domain entities and rows.
package postgres
