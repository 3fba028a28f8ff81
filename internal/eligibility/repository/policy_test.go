package repository

import (
	"strings"
	"testing"
)

func TestPolicyValidate(t *testing.T) {
	good := &Policy{ID: "p1", CommitteeID: "com-1", Rego: `package commie.eligibility

default eligible = true
`}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestPolicyValidateRejectsWrongPackage(t *testing.T) {
	p := &Policy{ID: "p1", CommitteeID: "com-1", Rego: `package somewhere.else

default eligible = true
`}
	err := p.Validate()
	if err == nil {
		t.Fatal("wrong package accepted")
	}
	if !strings.Contains(err.Error(), PolicyPackage) {
		t.Fatalf("error does not name the expected package: %v", err)
	}
}

func TestPolicyValidateRejectsBadRego(t *testing.T) {
	p := &Policy{ID: "p1", CommitteeID: "com-1", Rego: "this is not rego"}
	if err := p.Validate(); err == nil {
		t.Fatal("malformed policy accepted")
	}
}
