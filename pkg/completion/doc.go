// Package completion issues single prompt-completion requests to a remote
// text-generation API.
//
// Invariants:
// - One Complete call makes exactly one outbound request; SDK retries are off.
// - Every call is bounded by Options.Timeout.
// - Every failure (transport, non-2xx status, timeout, malformed or empty
//   response) is returned as *CompletionError.
//
// Usage:
//
//	client, _ := completion.NewClient(completion.DefaultOptions(apiKey), log)
//	text, err := client.Complete(ctx, "Write a tagline", "meta-llama/llama-3.3-70b-instruct:free")
package completion
