// Package api exposes ingestion and study sessions over HTTP. Handlers
// decode and validate requests, call the services, and map service errors
// to status codes and safe messages.
package api
