package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAssessmentPlainJSON(t *testing.T) {
	raw := `{"score": 7, "summary": "A short take.", "why_it_matters": "It shifts the market."}`

	a, err := ParseAssessment(raw, 10)
	if err != nil {
		t.Fatalf("ParseAssessment failed: %v", err)
	}
	if a.Score != 7 {
		t.Errorf("Expected score 7, got %d", a.Score)
	}
	if a.Summary != "A short take." {
		t.Errorf("Unexpected summary %q", a.Summary)
	}
	if a.WhyItMatters != "It shifts the market." {
		t.Errorf("Unexpected why_it_matters %q", a.WhyItMatters)
	}
}

func TestParseAssessmentCodeFence(t *testing.T) {
	raw := "```json\n{\"score\": 5, \"summary\": \"Fenced reply.\"}\n```"

	a, err := ParseAssessment(raw, 10)
	if err != nil {
		t.Fatalf("ParseAssessment failed: %v", err)
	}
	if a.Score != 5 || a.Summary != "Fenced reply." {
		t.Errorf("Unexpected assessment %+v", a)
	}
}

func TestParseAssessmentPreamble(t *testing.T) {
	raw := `Here is the assessment you asked for:
{"score": 8, "summary": "Preamble survived."}`

	a, err := ParseAssessment(raw, 10)
	if err != nil {
		t.Fatalf("ParseAssessment failed: %v", err)
	}
	if a.Score != 8 {
		t.Errorf("Expected score 8, got %d", a.Score)
	}
}

func TestParseAssessmentScoreOutOfRange(t *testing.T) {
	for _, raw := range []string{
		`{"score": 11, "summary": "Too high."}`,
		`{"score": -1, "summary": "Too low."}`,
	} {
		if _, err := ParseAssessment(raw, 10); err == nil {
			t.Errorf("Expected out-of-range error for %s", raw)
		}
	}
}

func TestParseAssessmentMissingSummary(t *testing.T) {
	if _, err := ParseAssessment(`{"score": 5, "summary": "  "}`, 10); err == nil {
		t.Error("Expected error for blank summary")
	}
}

func TestParseAssessmentNoJSON(t *testing.T) {
	if _, err := ParseAssessment("I cannot assess this item.", 10); err == nil {
		t.Error("Expected error when no JSON object present")
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := map[string]bool{
		"googleapi: Error 429: RESOURCE_EXHAUSTED": true,
		"rate limit exceeded":                      true,
		"connection refused":                       false,
	}
	for msg, want := range cases {
		if got := IsRateLimited(errors.New(msg)); got != want {
			t.Errorf("IsRateLimited(%q) = %v, want %v", msg, got, want)
		}
	}
	if IsRateLimited(nil) {
		t.Error("nil error should not be rate limited")
	}
}

func TestIsQuotaExhausted(t *testing.T) {
	if !IsQuotaExhausted(errors.New("billing quota exceeded for project")) {
		t.Error("Expected billing error detected as quota exhaustion")
	}
	if IsQuotaExhausted(errors.New("timeout")) {
		t.Error("Timeout should not read as quota exhaustion")
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 5000)
	if got := truncate(long, 4000); len(got) != 4000 {
		t.Errorf("Expected 4000 chars, got %d", len(got))
	}
	if got := truncate("short", 4000); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
}
