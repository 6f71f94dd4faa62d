package authorization

import (
	"context"
	"fmt"

	"github.com/tern-api/tern"
)

// Request carries the attributes of one inbound request that the pipeline
// evaluates. It is request-local; the only field the pipeline mutates is the
// FieldsToBeReturned projection.
type Request struct {
	// RoleContext is the caller's identity as asserted by authentication.
	RoleContext tern.RoleContext

	// Resource is the target of the entity/role/action check. It must be the
	// entity name (a string); anything else is a contract violation surfaced
	// as ErrMalformedResource.
	Resource any

	// Operations are the operations the verb resolved to. A multi-operation
	// verb (upsert) must be authorized for every one of them.
	Operations []tern.Operation

	// Columns is the cumulative set of columns the request references
	// anywhere: path, query string, and body.
	Columns []string

	// ExplicitFields is true when the caller supplied an explicit field
	// filter. Without one, a successful read has its projection narrowed to
	// the allowed column set.
	ExplicitFields bool

	// FieldsToBeReturned, when non-nil, is the read projection the pipeline
	// may narrow on success. Nil for requests that return no fields.
	FieldsToBeReturned *[]string
}

// Requirement is one independent authorization check. Requirements are
// composable: new kinds can be appended to a pipeline without touching the
// existing ones.
type Requirement interface {
	// Name identifies the requirement in defect reports.
	Name() string

	// Applies reports whether the requirement participates for this request.
	Applies(req *Request) bool

	// Evaluate performs the check. Any non-nil error denies the request;
	// errors wrapping ErrMalformedResource report a caller defect instead.
	Evaluate(req *Request, resolver *Resolver) error
}

// RoleContextRequirement checks that the asserted role is one the
// authenticated identity holds. Applies to every request.
type RoleContextRequirement struct{}

// Name implements Requirement.
func (RoleContextRequirement) Name() string { return "role-context" }

// Applies implements Requirement.
func (RoleContextRequirement) Applies(*Request) bool { return true }

// Evaluate implements Requirement.
func (RoleContextRequirement) Evaluate(req *Request, resolver *Resolver) error {
	if !resolver.IsValidRoleContext(req.RoleContext) {
		return fmt.Errorf("role %q not held by the authenticated identity", req.RoleContext.AssertedRole)
	}
	return nil
}

// EntityActionRequirement checks that the role is granted every operation
// the verb mapped to on the target entity. Its resource is the entity name;
// a resource of any other shape is a defect in the caller, not a denial.
type EntityActionRequirement struct{}

// Name implements Requirement.
func (EntityActionRequirement) Name() string { return "entity-action" }

// Applies implements Requirement.
func (EntityActionRequirement) Applies(*Request) bool { return true }

// Evaluate implements Requirement.
func (EntityActionRequirement) Evaluate(req *Request, resolver *Resolver) error {
	entity, ok := req.Resource.(string)
	if !ok {
		return fmt.Errorf("%w: entity-action requirement needs an entity name, got %T",
			ErrMalformedResource, req.Resource)
	}
	for _, op := range req.Operations {
		if !resolver.AreRoleAndActionDefinedForEntity(entity, req.RoleContext.AssertedRole, op) {
			return fmt.Errorf("role %q lacks %s on entity %q", req.RoleContext.AssertedRole, op, entity)
		}
	}
	return nil
}

// ColumnsRequirement checks the cumulative column set against the allow-list
// for every mapped operation. On success, a read without an explicit field
// filter has its projection narrowed to exactly the allowed columns, so
// authorization and projection resolve together.
type ColumnsRequirement struct{}

// Name implements Requirement.
func (ColumnsRequirement) Name() string { return "columns" }

// Applies implements Requirement. Only requests that carry columns or a
// return-field list participate.
func (ColumnsRequirement) Applies(req *Request) bool {
	return len(req.Columns) > 0 || req.FieldsToBeReturned != nil
}

// Evaluate implements Requirement.
func (ColumnsRequirement) Evaluate(req *Request, resolver *Resolver) error {
	entity, ok := req.Resource.(string)
	if !ok {
		return fmt.Errorf("%w: columns requirement needs an entity name, got %T",
			ErrMalformedResource, req.Resource)
	}

	role := req.RoleContext.AssertedRole
	for _, op := range req.Operations {
		if !resolver.AreColumnsAllowedForAction(entity, role, op, req.Columns) {
			return fmt.Errorf("role %q not allowed the requested columns on %q", role, entity)
		}
	}

	if !req.ExplicitFields && req.FieldsToBeReturned != nil {
		for _, op := range req.Operations {
			if op == tern.OperationRead {
				*req.FieldsToBeReturned = resolver.GetAllowedColumns(entity, role, op)
				break
			}
		}
	}
	return nil
}

// Pipeline evaluates a fixed ordered sequence of requirements against a
// request. Authorization succeeds iff every applicable requirement succeeds;
// evaluation stops at the first failure.
type Pipeline struct {
	resolver        *Resolver
	requirements    []Requirement
	decision        Decision
	contextDecision bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRequirements appends additional requirements to the default sequence.
func WithRequirements(reqs ...Requirement) PipelineOption {
	return func(p *Pipeline) {
		p.requirements = append(p.requirements, reqs...)
	}
}

// WithDecision sets a pipeline-level decision override.
func WithDecision(d Decision) PipelineOption {
	return func(p *Pipeline) {
		p.decision = d
	}
}

// WithContextDecision opts the pipeline into honoring decisions carried by
// the request context. Context decisions take precedence over the
// pipeline-level decision.
func WithContextDecision() PipelineOption {
	return func(p *Pipeline) {
		p.contextDecision = true
	}
}

// NewPipeline returns a pipeline with the default requirement sequence:
// role context, entity/role/action, then columns.
func NewPipeline(resolver *Resolver, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		requirements: []Requirement{
			RoleContextRequirement{},
			EntityActionRequirement{},
			ColumnsRequirement{},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authorize evaluates the requirement sequence for the request. It returns
// nil when every applicable requirement succeeds, ErrForbidden on any
// denial (uniform, with no detail about which check failed), and an error
// wrapping ErrMalformedResource when a requirement was handed a resource of
// the wrong shape.
func (p *Pipeline) Authorize(ctx context.Context, req *Request) error {
	decision := p.decision
	if p.contextDecision {
		if d := GetDecisionContext(ctx); d != DecisionUnset {
			decision = d
		}
	}
	switch decision {
	case DecisionAllow:
		return nil
	case DecisionDeny:
		return ErrForbidden
	}

	for _, requirement := range p.requirements {
		if !requirement.Applies(req) {
			continue
		}
		if err := requirement.Evaluate(req, p.resolver); err != nil {
			if IsMalformedResourceErr(err) {
				return err
			}
			return ErrForbidden
		}
	}
	return nil
}
