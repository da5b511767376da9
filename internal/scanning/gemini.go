package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks the model for a faithful transcription only; field
// extraction stays on our side so every engine is interchangeable.
const transcribePrompt = `You are transcribing a photographed retail receipt.

Read every piece of text in the image, top to bottom, and return it as plain text:
- Keep the original line structure: one receipt line per output line.
- Keep the original language and script (Japanese and/or English).
- Keep currency symbols, amounts, dates and times exactly as printed.
- Do not translate, summarize, interpret or reorder anything.
- Do not add any commentary, labels or markdown.

Return only the transcribed text.`

// Gemini is an Engine backed by Google Gemini. It transcribes the receipt
// image; the model reports no usable confidence, so Result.Confidence is
// always nil.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini-backed engine.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Recognize transcribes the receipt image. The segmentation hint has no
// Gemini equivalent and is ignored.
func (g *Gemini) Recognize(ctx context.Context, req Request) (Result, error) {
	parts := []genai.Part{
		genai.ImageData("png", req.Image),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("generating transcription: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return Result{Text: strings.TrimSpace(text.String())}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
