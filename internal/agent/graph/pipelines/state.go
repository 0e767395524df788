package pipelines

import "github.com/jan-sahayak/server/internal/agent/model"

// Input is what the orchestrator hands a specialist.
type Input struct {
	Query    string
	Language string
	// Profile holds caller-supplied details; extracted values override it.
	Profile *model.CitizenProfile
}

// State is the value passed between stages. Stages never mutate it; they
// return a Patch that Apply folds into a copy.
type State[E, A any] struct {
	Input     Input
	Extracted E
	Profile   *model.CitizenProfile
	Context   string
	// Analysis is nil when the analysis stage failed.
	Analysis *A
	Markdown string
	JSON     map[string]any
}

// Patch carries only the fields a stage produced.
type Patch[E, A any] struct {
	Extracted *E
	Profile   *model.CitizenProfile
	Context   *string
	Analysis  *A
	Markdown  *string
	JSON      map[string]any
}

// Apply returns a copy of s with every non-nil patch field set.
func (s State[E, A]) Apply(p Patch[E, A]) State[E, A] {
	out := s
	if p.Extracted != nil {
		out.Extracted = *p.Extracted
	}
	if p.Profile != nil {
		out.Profile = p.Profile
	}
	if p.Context != nil {
		out.Context = *p.Context
	}
	if p.Analysis != nil {
		out.Analysis = p.Analysis
	}
	if p.Markdown != nil {
		out.Markdown = *p.Markdown
	}
	if p.JSON != nil {
		out.JSON = p.JSON
	}
	return out
}

// Result is a pipeline's final response.
type Result struct {
	Markdown   string
	Structured map[string]any
}
