package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
)

// PolicyPackage is the Rego package every eligibility policy must declare.
// The evaluator queries the document at this path, so a policy under any
// other package would evaluate to an empty document.
const PolicyPackage = "commie.eligibility"

// Policy is a per-committee Rego override for the voting-eligibility rules.
type Policy struct {
	ID          string
	CommitteeID string
	Rego        string
}

// Validate compiles the policy and checks that it declares PolicyPackage.
// Upsert rejects policies that fail here, so a mispackaged override cannot
// be stored.
func (p *Policy) Validate() error {
	compiler, err := ast.CompileModules(map[string]string{"eligibility.rego": p.Rego})
	if err != nil {
		return fmt.Errorf("compile policy: %w", err)
	}
	for _, mod := range compiler.Modules {
		got := strings.TrimPrefix(mod.Package.Path.String(), "data.")
		if got != PolicyPackage {
			return fmt.Errorf("policy package is %q, want %q", got, PolicyPackage)
		}
	}
	return nil
}

// Repository is the persistence interface for eligibility policy overrides.
type Repository interface {
	// GetByCommittee returns the committee's override policy, or nil when the
	// committee uses the built-in default.
	GetByCommittee(ctx context.Context, committeeID string) (*Policy, error)
	Upsert(ctx context.Context, p *Policy) error
	Delete(ctx context.Context, committeeID string) error
}
