package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// A Gemini is a Generator backed by the Gemini generateContent REST endpoint,
// asking for JSON responses.
type Gemini struct {
	APIKey string
	// Model defaults to DefaultModel.
	Model string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var req geminiRequest
	req.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	req.GenerationConfig.ResponseMimeType = "application/json"
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	model, base, client := g.Model, g.BaseURL, g.Client
	if model == "" {
		model = DefaultModel
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(base, "/"), model)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := client.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", model, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s response: %w", model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %s: %s", model, resp.Status, bytes.TrimSpace(raw))
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", model, err)
	}
	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("%s returned no candidates", model)
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%s returned an empty candidate", model)
	}
	return sb.String(), nil
}
