package generationsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/testimonial"
)

const responseMimeType = "application/json"

type (
	geminiPart struct {
		Text string `json:"text"`
	}

	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}

	geminiRequest struct {
		Contents         []geminiContent `json:"contents"`
		GenerationConfig struct {
			ResponseMimeType string `json:"responseMimeType"`
		} `json:"generationConfig"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error,omitempty"`
	}
)

// GeminiGenerator drafts testimonials with the Gemini generateContent REST endpoint.
type GeminiGenerator struct {
	client  *rest.Client
	apiKey  string
	model   string
	baseURL string
}

var _ testimonial.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator returns a generator configured from conf.Generation.
// httpClient is optional, an *http.Client bounded by conf.Generation.Timeout is used when nil.
func NewGeminiGenerator(conf *core.Config, httpClient *http.Client) *GeminiGenerator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: conf.Generation.Timeout}
	}
	return &GeminiGenerator{
		client:  &rest.Client{HTTPClient: httpClient},
		apiKey:  core.CleanString(conf.Generation.APIKey),
		model:   conf.Generation.Model,
		baseURL: strings.TrimRight(conf.Generation.BaseURL, "/"),
	}
}

func (g *GeminiGenerator) endpoint() string {
	return g.baseURL + "/v1beta/models/" + g.model + ":generateContent"
}

// Generate sends one generateContent request. There are no retries.
func (g *GeminiGenerator) Generate(ctx context.Context, req testimonial.GenerationRequest) (testimonial.Draft, error) {
	if g.apiKey == "" {
		return testimonial.Draft{}, testimonial.ErrCredentialMissing
	}

	var payload geminiRequest
	payload.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt()}}}}
	payload.GenerationConfig.ResponseMimeType = responseMimeType
	body, err := json.Marshal(payload)
	if err != nil {
		return testimonial.Draft{}, errors.Wrap(err, "encoding generation request")
	}

	res, err := g.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: g.endpoint(),
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"x-goog-api-key": g.apiKey,
		},
		Body: body,
	})
	if err != nil {
		return testimonial.Draft{}, testimonial.NewGenerationError(errors.Wrap(err, "calling generation service"))
	}

	var decoded geminiResponse
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		msg := http.StatusText(res.StatusCode)
		if json.Unmarshal([]byte(res.Body), &decoded) == nil && decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return testimonial.Draft{}, testimonial.NewGenerationError(
			errors.Errorf("generation service status %d: %s", res.StatusCode, msg),
		)
	}
	if err = json.Unmarshal([]byte(res.Body), &decoded); err != nil {
		return testimonial.Draft{}, testimonial.NewGenerationError(errors.Wrap(err, "decoding generation response"))
	}

	text := responseText(decoded)
	if text == "" {
		return testimonial.Draft{}, testimonial.NewGenerationError(errors.New("empty generation response"))
	}
	return testimonial.ParseDraft([]byte(text))
}

// responseText joins the text parts of the first candidate.
func responseText(res geminiResponse) string {
	if len(res.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
