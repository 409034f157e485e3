// Package analysis asks an external text-generation service for narrative
// commentary on simulation results and for beginner tutorials on each
// protocol. The service is reached through the Generator interface; failures
// degrade to fixed placeholder content rather than errors.
package analysis

import (
	"context"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/alan-christopher/qkdsim/qkd"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultLanguage is the language responses are requested in when ClientOpts
// leaves it unset.
const DefaultLanguage = "English"

// A Generator turns a prompt into a response expected to hold one JSON object.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analysis is commentary on a simulation, in Markdown with LaTeX formulas.
type Analysis struct {
	Textual      string `json:"textual"`
	Mathematical string `json:"mathematical"`
	// Failed reports that the content is a placeholder because the generator
	// could not be reached or answered unintelligibly.
	Failed bool `json:"-"`
}

// EducationalContent is a beginner's guide to one protocol, in Markdown.
type EducationalContent struct {
	Prerequisites    string `json:"prerequisites"`
	ProtocolSteps    string `json:"protocolSteps"`
	SecurityAnalysis string `json:"securityAnalysis"`
	Failed           bool   `json:"-"`
}

var (
	failedAnalysis = Analysis{
		Textual:      "Could not reach the analysis service. Please try again.",
		Mathematical: "The mathematical analysis is unavailable because of an error.",
		Failed:       true,
	}
	failedEducation = EducationalContent{
		Prerequisites: "## Error\n\nUnfortunately the educational content could not be retrieved.",
		ProtocolSteps: "Please check your connection and try again.",
		Failed:        true,
	}
)

// ClientOpts configures a Client.
type ClientOpts struct {
	// Generator answers prompts. Must be non-nil.
	Generator Generator
	// Language responses are requested in. Defaults to DefaultLanguage.
	Language string
	Logger   *zerolog.Logger
}

// A Client requests analyses and tutorials from a Generator.
type Client struct {
	gen      Generator
	language string
	log      *zerolog.Logger
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Generator == nil {
		return nil, errors.New("must provide Generator")
	}
	c := &Client{gen: opts.Generator, language: opts.Language, log: opts.Logger}
	if c.language == "" {
		c.language = DefaultLanguage
	}
	if c.log == nil {
		nop := zerolog.Nop()
		c.log = &nop
	}
	return c, nil
}

// Analyze requests commentary on result, obtained by simulating p. It only
// fails if the prompt cannot be built; generator failures yield a placeholder
// Analysis with Failed set.
func (c *Client) Analyze(ctx context.Context, p qkd.Params, result qkd.AggregatedResult) (Analysis, error) {
	prompt, err := AnalysisPrompt(c.language, p, result)
	if err != nil {
		return Analysis{}, err
	}
	var a Analysis
	if err := c.ask(ctx, prompt, &a); err != nil {
		c.log.Err(err).Str("protocol", p.Protocol.String()).Msg("Simulation analysis failed")
		return failedAnalysis, nil
	}
	return a, nil
}

// Educate requests a beginner's guide to protocol, degrading like Analyze.
func (c *Client) Educate(ctx context.Context, protocol qkd.Protocol) (EducationalContent, error) {
	prompt, err := EducationPrompt(c.language, protocol)
	if err != nil {
		return EducationalContent{}, err
	}
	var e EducationalContent
	if err := c.ask(ctx, prompt, &e); err != nil {
		c.log.Err(err).Str("protocol", protocol.String()).Msg("Educational content request failed")
		return failedEducation, nil
	}
	return e, nil
}

func (c *Client) ask(ctx context.Context, prompt string, v any) error {
	resp, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(stripFence(resp)), v)
}

// stripFence removes surrounding whitespace and an optional Markdown code
// fence from a response.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
