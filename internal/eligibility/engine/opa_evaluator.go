package engine

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	committeedomain "commie/backend/internal/committee/domain"
	"commie/backend/internal/eligibility/repository"
	motiondomain "commie/backend/internal/motion/domain"
)

// Default Rego policy implementing the standing rules: a terminal motion is
// never eligible, and a committee that requires seconds blocks voting until
// one is recorded. Committees may override this per committee via the policy
// repository.
const defaultRegoPolicy = `package commie.eligibility

default eligible = false

reasons contains "voting has closed" if {
	input.motion.terminal
}

reasons contains "motion requires a second" if {
	not input.motion.terminal
	input.committee.require_second
	not input.motion.seconded
}

eligible if {
	count(reasons) == 0
}
`

// OPAEvaluator evaluates voting eligibility using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based eligibility evaluator. policyRepo may
// be nil; then only the built-in default policy is used.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the default policy. Does not touch the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	input := buildInput(
		&committeedomain.Committee{Settings: committeedomain.Settings{RequireSecond: true}},
		&motiondomain.Motion{Status: motiondomain.StatusActive, VotingStatus: motiondomain.VotingPending},
	)
	_, err := evalPolicy(ctx, defaultRegoPolicy, input)
	if err != nil {
		return fmt.Errorf("eligibility health check: %w", err)
	}
	return nil
}

// Evaluate runs the committee's override policy if one exists, otherwise the
// default. An override that fails to compile or evaluate falls back to the
// default with a logged warning so a broken policy cannot take voting down.
func (e *OPAEvaluator) Evaluate(ctx context.Context, committee *committeedomain.Committee, motion *motiondomain.Motion) (Result, error) {
	input := buildInput(committee, motion)

	if e.policyRepo != nil {
		override, err := e.policyRepo.GetByCommittee(ctx, committee.ID)
		if err != nil {
			return Result{}, err
		}
		if override != nil {
			res, err := evalPolicy(ctx, override.Rego, input)
			if err == nil {
				res.VotingStatus = string(motion.VotingStatus)
				return res, nil
			}
			log.Printf("eligibility: committee %s override policy failed, using default: %v", committee.ID, err)
		}
	}

	res, err := evalPolicy(ctx, defaultRegoPolicy, input)
	if err != nil {
		return Result{}, err
	}
	res.VotingStatus = string(motion.VotingStatus)
	return res, nil
}

func buildInput(committee *committeedomain.Committee, motion *motiondomain.Motion) map[string]any {
	return map[string]any{
		"committee": map[string]any{
			"id":                committee.ID,
			"require_second":    committee.Settings.RequireSecond,
			"allow_abstentions": committee.Settings.AllowAbstentions,
			"enforcement_level": string(committee.Settings.EnforcementLevel),
		},
		"motion": map[string]any{
			"id":            motion.ID,
			"status":        string(motion.Status),
			"voting_status": string(motion.VotingStatus),
			"vote_required": motion.VoteRequired,
			"seconded":      motion.SecondedBy != "",
			"terminal":      motion.Status.Terminal(),
			"subsidiary":    motion.Subsidiary(),
		},
	}
}

func evalPolicy(ctx context.Context, policy string, input map[string]any) (Result, error) {
	compiler, err := ast.CompileModules(map[string]string{"eligibility.rego": policy})
	if err != nil {
		return Result{}, fmt.Errorf("compile policy: %w", err)
	}
	rs, err := rego.New(
		rego.Query("data."+repository.PolicyPackage),
		rego.Compiler(compiler),
		rego.Input(input),
	).Eval(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Result{}, fmt.Errorf("eval policy: empty result set")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Result{}, fmt.Errorf("eval policy: unexpected document type %T", rs[0].Expressions[0].Value)
	}
	// A policy declared under the wrong package leaves the queried document
	// empty. Erroring here routes such overrides into the default fallback
	// instead of silently reporting ineligible with no reasons.
	if _, ok := doc["eligible"]; !ok {
		return Result{}, fmt.Errorf("eval policy: document does not define eligible")
	}

	var res Result
	if v, ok := doc["eligible"].(bool); ok {
		res.Eligible = v
	}
	if raw, ok := doc["reasons"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				res.Reasons = append(res.Reasons, s)
			}
		}
		sort.Strings(res.Reasons)
	}
	return res, nil
}
