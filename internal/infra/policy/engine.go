package policy

import (
	"context"
	_ "embed"
	"errors"

	"github.com/open-policy-agent/opa/rego"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

//go:embed authz.rego
var authzModule string

const defaultQuery = "data.custody.authz.allow"

// Engine decides which capabilities a role carries. The mapping lives in the
// embedded rego module so role changes never touch Go code.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngine(ctx context.Context) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.Module("authz.rego", authzModule),
		rego.StrictBuiltinErrors(true),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

type input struct {
	Role       string `json:"role"`
	Capability string `json:"capability"`
}

// Allow reports whether the role holds the capability.
func (e *Engine) Allow(ctx context.Context, role evidence.Role, capability string) (bool, error) {
	if e == nil {
		return false, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input{
		Role:       string(role),
		Capability: capability,
	}))
	if err != nil {
		return false, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, errors.New("empty policy result")
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, errors.New("policy result is not a boolean")
	}
	return allowed, nil
}
