// Package gcs stores page screenshots in a Google Cloud Storage bucket and
// returns the public URL the model fetches them from.
package gcs
