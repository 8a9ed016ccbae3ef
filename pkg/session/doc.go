// Package session persists per-user conversation state as JSON documents.
//
// Invariants:
// - Session keys are validated and path-safe.
// - Writes for the same session are serialized.
// - State files are replaced atomically so readers never see a torn write.
//
// Usage:
//
//	mgr, _ := session.New("/tmp/nutrisync/sessions")
//	sess, _ := mgr.GetOrCreate(ctx, "NutriSync", "12345")
//	_ = mgr.ApplyDelta(ctx, "NutriSync", "12345", map[string]any{"user_profile": "..."})
//	_ = sess
package session
