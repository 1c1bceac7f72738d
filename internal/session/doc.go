// Package session plays the items of a LearningUnit one at a time.
//
// A Session is an immutable value: every action returns the next Session
// together with a Transition describing what happened. Invalid actions are
// rejected through Transition.Reason rather than returned as errors, so a
// caller can always keep the previous value. Player wraps a Session for
// callers that need mutual exclusion and event publication.
package session
