// Package task manages background job queuing, processing, and lifecycle.
// It runs batch ingestion of uploaded resources outside of HTTP request
// handling, persists task state through a TaskStore, and restores
// unfinished tasks after a restart.
package task
