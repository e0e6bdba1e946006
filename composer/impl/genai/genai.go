package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
)

// Client has the shape of the OpenAI chat completion API so a layout oracle can run on either provider.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type client struct {
	genaiClient *genai.Client
}

func New(genaiClient *genai.Client) Client {
	return &client{genaiClient: genaiClient}
}

type GenaiModel string

const (
	GenaiModelFlash GenaiModel = "gemini-1.5-flash"
	GenaiModelPro   GenaiModel = "gemini-1.5-pro"
)

// CreateChatCompletion sends the conversation as a single prompt. Layout requests are single-turn, so
// system and assistant messages become labelled text parts and image parts become blobs.
func (c *client) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := ValidateModel(request.Model); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	parts, err := promptParts(request.Messages)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if len(parts) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("empty prompt")
	}

	resp, err := c.genaiClient.GenerativeModel(request.Model).GenerateContent(ctx, parts...)
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return openai.ChatCompletionResponse{}, errors.New("no response from model")
	}

	return openai.ChatCompletionResponse{
		Model: request.Model,
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: text,
				},
				FinishReason: openai.FinishReasonStop,
			},
		},
	}, nil
}

func promptParts(messages []openai.ChatCompletionMessage) ([]genai.Part, error) {
	parts := []genai.Part{}
	for _, message := range messages {
		switch {
		case message.Role == openai.ChatMessageRoleSystem:
			parts = append(parts, genai.Text("System: "+message.Content))
		case message.Role == openai.ChatMessageRoleAssistant:
			parts = append(parts, genai.Text("Assistant: "+message.Content))
		case len(message.MultiContent) > 0:
			for _, content := range message.MultiContent {
				part, err := partOf(content)
				if err != nil {
					return nil, err
				}
				parts = append(parts, part)
			}
		case message.Content != "":
			parts = append(parts, genai.Text(message.Content))
		}
	}
	return parts, nil
}

func partOf(content openai.ChatMessagePart) (genai.Part, error) {
	if content.Type != openai.ChatMessagePartTypeImageURL {
		return genai.Text(content.Text), nil
	}
	if content.ImageURL == nil {
		return nil, errors.New("image part without URL")
	}
	data, mimeType, err := decodeDataURI(content.ImageURL.URL)
	if err != nil {
		return nil, err
	}
	return genai.Blob{MIMEType: mimeType, Data: data}, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}

// decodeDataURI splits "data:<mime>;base64,<payload>" into the payload bytes and the mime type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, found := strings.CutPrefix(uri, "data:")
	if !found {
		return nil, "", errors.New("not a data URI")
	}
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", errors.New("data URI without payload")
	}
	mimeType, found := strings.CutSuffix(header, ";base64")
	if !found {
		return nil, "", errors.New("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, mimeType, nil
}

// ValidateModel accepts the Gemini models the adapter is known to work with.
func ValidateModel(model string) error {
	switch GenaiModel(model) {
	case GenaiModelFlash, GenaiModelPro:
		return nil
	default:
		return fmt.Errorf("invalid model %q", model)
	}
}

// IsGenaiModel reports whether model should be routed to Gemini.
func IsGenaiModel(model string) bool {
	return strings.HasPrefix(model, "gemini-")
}
