package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ntroshkin/gembot/internal/domain"
)

// GeminiClient implements domain.LLMClient on top of the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates an LLM client backed by the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Generate implements domain.LLMClient. History turns are replayed as
// alternating context in insertion order; no alternation is enforced
// here, the backend is the integrity boundary.
func (g *GeminiClient) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	var contents []*genai.Content
	for _, turn := range req.History {
		contents = append(contents, genai.NewContentFromText(turn.Content, roleFor(turn.Role)))
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if req.UseSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.ImageOutput {
		cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
	}

	res, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, &domain.BackendError{Err: err}
	}

	out := decodeResponse(res)
	if out.Text == "" && len(out.Images) == 0 {
		return nil, &domain.BackendError{Err: fmt.Errorf("empty response from model %s", req.Model)}
	}
	return out, nil
}

// GenerateOneShot implements the stateless single-instruction call used
// by quick tools.
func (g *GeminiClient) GenerateOneShot(ctx context.Context, req domain.OneShotRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
	}
	if req.ThinkingBudget != nil {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}

	contents := []*genai.Content{genai.NewContentFromText(req.UserText, genai.RoleUser)}

	res, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", &domain.BackendError{Err: err}
	}

	text := res.Text()
	if text == "" {
		return "", &domain.BackendError{Err: fmt.Errorf("empty response from model %s", req.Model)}
	}
	return text, nil
}

// roleFor maps a history turn role onto the wire role names.
func roleFor(r domain.Role) genai.Role {
	if r == domain.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func decodeResponse(res *genai.GenerateContentResponse) *domain.GenerateResult {
	out := &domain.GenerateResult{}

	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				out.Text += part.Text
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out.Images = append(out.Images, domain.Image{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				})
			}
		}
	}
	if out.Text == "" {
		out.Text = res.Text()
	}

	if len(res.Candidates) > 0 && res.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range res.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = chunk.Web.URI
			}
			out.Sources = append(out.Sources, domain.Source{Title: title, URI: chunk.Web.URI})
		}
	}

	return out
}
