// Package tracking defines the vocabulary shared with the spatial tracking
// subsystem: poses, anchors, hit-test targets and detected surfaces, together
// with the capability interfaces the coordination engine consumes.
//
// # Ownership
//
// Identities are always assigned by the tracking subsystem. Anchor IDs and
// hit-test target IDs are opaque strings and are never generated by callers.
//
// # Blocking behaviour
//
// Creation and restoration calls block until the tracking subsystem resolves
// them. Callers that must not block (input handlers, the frame loop) run them
// through loop.Await so the result resumes on the session loop.
//
// Update advances internal tracking state and is only ever called from the
// frame loop, once per frame.
package tracking
