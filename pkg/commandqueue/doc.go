// Package commandqueue serializes work per lane.
//
// Invariants:
// - Tasks in the same lane execute one at a time in FIFO (submission) order.
// - Tasks in different lanes may execute concurrently.
// - Submit never blocks; the returned channel yields exactly one Result.
//
// The bot uses one lane per chat, so every command for a chat (including its
// completion call) runs to completion before the next one for that chat starts.
//
// Usage:
//
//	queue := commandqueue.New()
//	defer queue.Close()
//	err := queue.Enqueue(ctx, commandqueue.LaneForChat(42), func(ctx context.Context) error {
//		return nil
//	}, nil)
package commandqueue
