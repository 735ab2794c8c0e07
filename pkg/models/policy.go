package models

import (
	"fmt"
	"strings"
)

// Task names a workflow step that needs a completion
type Task string

const (
	TaskDraft  Task = "draft"
	TaskRevise Task = "revise"
)

// Default model identifiers on OpenRouter
const (
	DefaultDraftPrimary  = "meta-llama/llama-3.3-70b-instruct:free"
	DefaultDraftFallback = "nex-agi/deepseek-v3.1-nex-n1:free"
	DefaultRevise        = "mistralai/mistral-small-3.1-24b-instruct:free"
)

// maxCandidates is how many models a task may try: a draft gets one
// fallback, a revision none.
var maxCandidates = map[Task]int{
	TaskDraft:  2,
	TaskRevise: 1,
}

// TooManyModelsError is returned by NewPolicy for an oversize list
type TooManyModelsError struct {
	Task  Task
	Count int
	Max   int
}

func (e *TooManyModelsError) Error() string {
	return fmt.Sprintf("%s allows at most %d models, got %d", e.Task, e.Max, e.Count)
}

// Policy holds the ordered candidate models for each task
type Policy struct {
	candidates map[Task][]string
}

// DefaultPolicy returns the built-in model lists
func DefaultPolicy() *Policy {
	return &Policy{
		candidates: map[Task][]string{
			TaskDraft:  {DefaultDraftPrimary, DefaultDraftFallback},
			TaskRevise: {DefaultRevise},
		},
	}
}

// NewPolicy builds a policy from configured model lists. Tasks missing from
// lists keep their defaults; blank entries are dropped.
func NewPolicy(lists map[Task][]string) (*Policy, error) {
	policy := DefaultPolicy()

	for task, models := range lists {
		if task != TaskDraft && task != TaskRevise {
			return nil, fmt.Errorf("unknown task: %s", task)
		}

		cleaned := make([]string, 0, len(models))
		for _, model := range models {
			if model = strings.TrimSpace(model); model != "" {
				cleaned = append(cleaned, model)
			}
		}
		if len(cleaned) == 0 {
			continue
		}
		if limit := maxCandidates[task]; len(cleaned) > limit {
			return nil, &TooManyModelsError{Task: task, Count: len(cleaned), Max: limit}
		}
		policy.candidates[task] = cleaned
	}

	return policy, nil
}

// Candidates returns a copy of the task's models, in the order they are tried
func (p *Policy) Candidates(task Task) []string {
	models := p.candidates[task]
	out := make([]string, len(models))
	copy(out, models)
	return out
}
