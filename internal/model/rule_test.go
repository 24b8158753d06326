package model

import "testing"

func TestComplianceRule_Applies(t *testing.T) {
	r := ComplianceRule{
		ID:        "soc2-cc6.1-mfa",
		Framework: FrameworkSOC2,
		ControlID: "CC6.1",
		AppliesTo: []string{"iam_policy", "iam_user"},
	}

	if !r.Applies("iam_policy") {
		t.Error("expected rule to apply to iam_policy")
	}
	if r.Applies("s3_bucket") {
		t.Error("expected rule not to apply to s3_bucket")
	}
}
