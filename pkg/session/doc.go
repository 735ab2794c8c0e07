// Package session holds per-chat copywriting workflow state in memory.
//
// Invariants:
// - A session's fields fill in order: brief, draft, chosen, final.
// - Reset clears every field; nothing else removes state.
// - Store methods hand out copies, so callers never share the stored record.
// - Sessions live for the lifetime of the process; there is no eviction.
//
// Usage:
//
//	store := session.NewStore()
//	store.Reset(42)
//	sess, _ := store.Update(42, func(s *session.Session) error {
//		s.Brief = "Eco water bottle, 1L, for hikers"
//		return nil
//	})
//	_ = sess.Stage() // session.StageBrief
package session
