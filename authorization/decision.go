package authorization

import "context"

// Decision allows bypassing requirement evaluation for admin tools and tests.
// Decisions provide explicit control over the pipeline's outcome without
// modifying the permission model.
//
// The decision mechanism has two layers:
//  1. Pipeline-level: set via WithDecision() at construction
//  2. Context-level: set via WithDecisionContext() and opt-in via WithContextDecision()
//
// Context-based decisions are opt-in by design. Applications must explicitly
// enable WithContextDecision() when creating the Pipeline to prevent
// accidental authorization bypasses from propagating through middleware.
type Decision int

// decisionContextKey is a custom type for context keys to avoid collisions.
type decisionContextKey struct{}

var decisionKey = decisionContextKey{}

const (
	// DecisionUnset means no override - evaluate the requirement sequence.
	DecisionUnset Decision = iota

	// DecisionAllow bypasses evaluation and always authorizes.
	// Use for admin tools, background jobs, or testing authorized code paths.
	DecisionAllow

	// DecisionDeny bypasses evaluation and always denies.
	// Use for testing unauthorized code paths without model setup.
	DecisionDeny
)

// WithDecisionContext returns a new context carrying the given decision.
//
// The Pipeline does NOT automatically consult this value; it must have been
// constructed with WithContextDecision(). This keeps the security boundary
// explicit: "this Pipeline respects context overrides."
func WithDecisionContext(ctx context.Context, decision Decision) context.Context {
	return context.WithValue(ctx, decisionKey, decision)
}

// GetDecisionContext retrieves the decision from context.
// Returns DecisionUnset if no decision is set.
func GetDecisionContext(ctx context.Context) Decision {
	if decision, ok := ctx.Value(decisionKey).(Decision); ok {
		return decision
	}
	return DecisionUnset
}
