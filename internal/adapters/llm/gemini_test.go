package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/ntroshkin/gembot/internal/domain"
)

func TestRoleFor(t *testing.T) {
	assert.Equal(t, genai.Role(genai.RoleUser), roleFor(domain.RoleUser))
	assert.Equal(t, genai.Role(genai.RoleModel), roleFor(domain.RoleModel))
}

func TestDecodeResponseTextAndImages(t *testing.T) {
	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Вот картинка."},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2}}},
			}},
		}},
	}

	out := decodeResponse(res)
	assert.Equal(t, "Вот картинка.", out.Text)
	assert.Len(t, out.Images, 1)
	assert.Equal(t, "image/png", out.Images[0].MIMEType)
}

func TestDecodeResponseGroundingSources(t *testing.T) {
	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "ответ"}}},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{Title: "Source", URI: "https://example.com"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://no-title.example"}},
					{Web: nil},
				},
			},
		}},
	}

	out := decodeResponse(res)
	assert.Len(t, out.Sources, 2)
	assert.Equal(t, "Source", out.Sources[0].Title)
	// a missing title falls back to the URI
	assert.Equal(t, "https://no-title.example", out.Sources[1].Title)
}
