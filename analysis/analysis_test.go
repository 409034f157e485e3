package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alan-christopher/qkdsim/qkd"
	"github.com/alan-christopher/qkdsim/qkd/photon"
)

type fakeGenerator struct {
	resp    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.resp, f.err
}

func testParams(protocol qkd.Protocol, model photon.NoiseModel) qkd.Params {
	return qkd.Params{
		Protocol:                protocol,
		QubitCount:              500,
		RunCount:                1,
		NoiseModel:              model,
		RectilinearBasisPercent: 50,
		EavesdropPercent:        20,
		QBERPercent:             2,
	}
}

func TestNewClientRequiresGenerator(t *testing.T) {
	_, err := NewClient(ClientOpts{})
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	tcs := []struct {
		name string
		resp string
		err  error
		want Analysis
	}{
		{
			name: "plain json",
			resp: `{"textual": "# Summary", "mathematical": "$|0\\rangle$"}`,
			want: Analysis{Textual: "# Summary", Mathematical: `$|0\rangle$`},
		},
		{
			name: "fenced json",
			resp: "\n```json\n{\"textual\": \"a\", \"mathematical\": \"b\"}\n```\n",
			want: Analysis{Textual: "a", Mathematical: "b"},
		},
		{
			name: "generator error",
			err:  errors.New("unavailable"),
			want: failedAnalysis,
		},
		{
			name: "malformed json",
			resp: "Sure! Here is your analysis.",
			want: failedAnalysis,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{resp: tc.resp, err: tc.err}
			c, err := NewClient(ClientOpts{Generator: gen})
			require.NoError(t, err)
			got, err := c.Analyze(context.Background(), testParams(qkd.BB84, photon.SimpleQBER), qkd.AggregatedResult{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Len(t, gen.prompts, 1)
		})
	}
}

func TestAnalysisPrompt(t *testing.T) {
	res := qkd.AggregatedResult{AvgSiftedKeyLength: 251, AvgFinalKeyLength: 98, AvgMeasuredQBER: 0.0712}

	bb84, err := AnalysisPrompt("English", testParams(qkd.BB84, photon.SimpleQBER), res)
	require.NoError(t, err)
	assert.Contains(t, bb84, "Analyze the following BB84 protocol")
	assert.Contains(t, bb84, "Total qubits sent: 500")
	assert.Contains(t, bb84, "Eavesdropping by Eve: 20%")
	assert.Contains(t, bb84, "simple bit-flip error")
	assert.Contains(t, bb84, "Intrinsic channel error rate (QBER): 2%")
	assert.Contains(t, bb84, "Measured quantum bit error rate: 7.12%")
	assert.Contains(t, bb84, "Sifted key length: 251")
	assert.Contains(t, bb84, "Estimated secure final key length: 98")

	e91, err := AnalysisPrompt("Persian", testParams(qkd.E91, photon.Depolarizing), res)
	require.NoError(t, err)
	assert.Contains(t, e91, "E91 (Entanglement-based)")
	assert.Contains(t, e91, "Entangled pairs: 500")
	assert.Contains(t, e91, "depolarizing channel")
	assert.Contains(t, e91, "Depolarization probability: 2%")
	assert.Contains(t, e91, "respond in Persian")
}

func TestEducate(t *testing.T) {
	gen := &fakeGenerator{resp: `{"prerequisites": "p", "protocolSteps": "s", "securityAnalysis": "a"}`}
	c, err := NewClient(ClientOpts{Generator: gen})
	require.NoError(t, err)

	got, err := c.Educate(context.Background(), qkd.E91)
	require.NoError(t, err)
	assert.Equal(t, EducationalContent{Prerequisites: "p", ProtocolSteps: "s", SecurityAnalysis: "a"}, got)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "**Protocol to Explain:** E91")
	assert.Contains(t, gen.prompts[0], "Entanglement")
	assert.Contains(t, gen.prompts[0], "in English")
}

func TestEducateFailure(t *testing.T) {
	c, err := NewClient(ClientOpts{Generator: &fakeGenerator{err: errors.New("quota exceeded")}})
	require.NoError(t, err)
	got, err := c.Educate(context.Background(), qkd.BB84)
	require.NoError(t, err)
	assert.True(t, got.Failed)
	assert.Empty(t, got.SecurityAnalysis)
}

func TestEducationPromptOmitsEntanglementForBB84(t *testing.T) {
	p, err := EducationPrompt("English", qkd.BB84)
	require.NoError(t, err)
	assert.False(t, strings.Contains(p, "magic twins"), "BB84 prompt mentions entanglement analogy:\n%s", p)
}
