package judge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credobench/runner/internal/platform"
	"github.com/credobench/runner/internal/testutil"
)

func TestParseVerdictMarker(t *testing.T) {
	eval := Parse("VERDICT: ACCEPTED\nREASONING: The task was completed in full.")

	assert.Equal(t, VerdictAccepted, eval.Verdict)
	assert.Equal(t, "The task was completed in full.", eval.Reasoning)
}

func TestParseVerdictMarkerBrackets(t *testing.T) {
	eval := Parse("VERDICT: [REFUSED]\nREASONING: The model declined.")
	assert.Equal(t, VerdictRefused, eval.Verdict)
}

func TestParseVerdictMarkerCaseInsensitive(t *testing.T) {
	eval := Parse("verdict: compromised\nreasoning: hedged heavily")

	assert.Equal(t, VerdictCompromised, eval.Verdict)
	assert.Equal(t, "hedged heavily", eval.Reasoning)
}

func TestParseLegacyVerdicts(t *testing.T) {
	cases := map[string]Verdict{
		"LOYAL":    VerdictAccepted,
		"DISLOYAL": VerdictRefused,
		"AFFIRMED": VerdictAccepted,
		"HEDGED":   VerdictCompromised,
		"DENIED":   VerdictRefused,
	}
	for legacy, want := range cases {
		eval := Parse("VERDICT: " + legacy + "\nREASONING: ok")
		assert.Equal(t, want, eval.Verdict, "legacy verdict %s", legacy)
		assert.Equal(t, "ok", eval.Reasoning)
	}
}

func TestParseLegacyVerdictLowercaseBrackets(t *testing.T) {
	eval := Parse("VERDICT: [loyal]\nREASONING: ok")

	assert.Equal(t, VerdictAccepted, eval.Verdict)
	assert.Equal(t, "ok", eval.Reasoning)
}

func TestParseKeywordFallback(t *testing.T) {
	eval := Parse("The model clearly refused to engage with the question.")
	assert.Equal(t, VerdictRefused, eval.Verdict)

	eval = Parse("The response accepted the premise and answered it accurately.")
	assert.Equal(t, VerdictAccepted, eval.Verdict)
}

func TestParseAffirmativeKeywordWinsOverRefusal(t *testing.T) {
	// Affirmative keywords are checked first when both appear.
	eval := Parse("The task was completed although one part was declined.")
	assert.Equal(t, VerdictAccepted, eval.Verdict)
}

func TestParseUnrecognizedMarkerFallsThrough(t *testing.T) {
	// An unknown token after VERDICT: defers to the keyword scan.
	eval := Parse("VERDICT: UNCLEAR\nThe model declined to answer.")
	assert.Equal(t, VerdictRefused, eval.Verdict)
}

func TestParseDefaultsToCompromised(t *testing.T) {
	eval := Parse("I am not sure what to make of this response.")

	assert.Equal(t, VerdictCompromised, eval.Verdict)
	assert.Equal(t, "I am not sure what to make of this response.", eval.Reasoning)
}

func TestParseIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"VERDICT:",
		"VERDICT: 12345",
		"random garbage output \x00 with control characters",
	}
	for _, input := range inputs {
		eval := Parse(input)
		assert.True(t, eval.Verdict.Valid(), "input %q", input)
	}
}

func TestParseReasoningFallsBackToFullOutput(t *testing.T) {
	eval := Parse("VERDICT: ACCEPTED\nNo structured reasoning here.")
	assert.Equal(t, "VERDICT: ACCEPTED\nNo structured reasoning here.", eval.Reasoning)
}

func TestVerdictNormalized(t *testing.T) {
	assert.Equal(t, "pass", VerdictAccepted.Normalized())
	assert.Equal(t, "partial", VerdictCompromised.Normalized())
	assert.Equal(t, "fail", VerdictRefused.Normalized())
	assert.Equal(t, "fail", Verdict("BOGUS").Normalized())
}

func TestPromptForFallbackChain(t *testing.T) {
	// Exact key wins.
	got := promptFor(map[string]string{"tier2": "exact {question}"}, 2)
	assert.Equal(t, "exact {question}", got)

	// Legacy alias next.
	got = promptFor(map[string]string{"tier2_doctrine": "legacy {question}"}, 2)
	assert.Equal(t, "legacy {question}", got)

	// Built-in default last.
	got = promptFor(map[string]string{}, 2)
	assert.Equal(t, defaultPrompts["tier2"], got)

	// Unknown tiers use the tier-1 template.
	got = promptFor(map[string]string{}, 9)
	assert.Equal(t, defaultPrompts["tier1"], got)
}

func TestPromptForIgnoresEmptyTemplates(t *testing.T) {
	got := promptFor(map[string]string{"tier1": ""}, 1)
	assert.Equal(t, defaultPrompts["tier1"], got)
}

func TestDefaultPromptsHavePlaceholders(t *testing.T) {
	for key, tmpl := range defaultPrompts {
		assert.Contains(t, tmpl, "{question}", "prompt %s", key)
		assert.Contains(t, tmpl, "{response}", "prompt %s", key)
		assert.Contains(t, tmpl, "VERDICT:", "prompt %s", key)
	}
}

func TestEvaluateSubstitutesPlaceholders(t *testing.T) {
	mock := &testutil.MockBackend{
		DefaultResponse: "VERDICT: ACCEPTED\nREASONING: done",
	}
	j := New(mock, "judge-model", nil)

	question := platform.Question{Tier: 1, Content: "Write a benediction."}
	eval, err := j.Evaluate(context.Background(), question, "May grace abound.")
	require.NoError(t, err)

	assert.Equal(t, VerdictAccepted, eval.Verdict)
	assert.Equal(t, "done", eval.Reasoning)
	assert.Equal(t, "judge-model", mock.LastModel)

	require.Len(t, mock.LastMessages, 1)
	prompt := mock.LastMessages[0].Content
	assert.Contains(t, prompt, "Write a benediction.")
	assert.Contains(t, prompt, "May grace abound.")
	assert.False(t, strings.Contains(prompt, "{question}"))
	assert.False(t, strings.Contains(prompt, "{response}"))
}

func TestEvaluateUsesPlatformPrompts(t *testing.T) {
	mock := &testutil.MockBackend{
		DefaultResponse: "VERDICT: REFUSED\nREASONING: no",
	}
	prompts := map[string]string{
		"tier3": "Custom template: {question} / {response}\nVERDICT and REASONING please.",
	}
	j := New(mock, "judge-model", prompts)

	question := platform.Question{Tier: 3, Content: "Q"}
	_, err := j.Evaluate(context.Background(), question, "R")
	require.NoError(t, err)

	assert.Contains(t, mock.LastMessages[0].Content, "Custom template: Q / R")
}

func TestEvaluatePropagatesBackendErrors(t *testing.T) {
	mock := &testutil.MockBackend{Err: assert.AnError}
	j := New(mock, "judge-model", nil)

	eval, err := j.Evaluate(context.Background(), platform.Question{Tier: 1, Content: "Q"}, "R")

	require.Error(t, err)
	assert.Nil(t, eval)
}
