// Package models decides which completion models serve each workflow task
// and runs a prompt through them in order until one succeeds.
//
// Drafting has a primary and a fallback model. Revision uses one dedicated
// model with no fallback.
package models
