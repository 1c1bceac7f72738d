// Package ingest turns raw model output into content blocks and learning
// units.
//
// Normalize and Synthesize are pure, total functions: they never fail and
// default or clamp whatever the model produced. Pipeline drives the model
// once per page, tolerates per-page failures, and only fails outright when
// no page yields any blocks.
package ingest
