package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	JSON_PREFIX = "```json"
	JSON_SUFFIX = "```"
)

// Client is the chat completion subset of the OpenAI API. The Gemini adapter implements it too,
// so callers can switch providers by model.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// adapter wraps the OpenAI client
type adapter struct {
	client *openai.Client
}

// NewAdapter creates a new OpenAI client adapter
func NewAdapter(client *openai.Client) Client {
	return &adapter{client: client}
}

func (a *adapter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return a.client.CreateChatCompletion(ctx, request)
}

// GetCompletionContent extracts the content from the first choice
func GetCompletionContent(response openai.ChatCompletionResponse) (string, error) {
	if len(response.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return response.Choices[0].Message.Content, nil
}

// ExtractJson returns the body of the ```json fenced block in text.
func ExtractJson(text string) (string, error) {
	startIndex := strings.Index(text, JSON_PREFIX)
	if startIndex == -1 {
		return "", fmt.Errorf("no JSON block in the text")
	}
	endIndex := strings.LastIndex(text, JSON_SUFFIX)
	if endIndex <= startIndex {
		return "", fmt.Errorf("no closing JSON block in the text")
	}
	return text[startIndex+len(JSON_PREFIX) : endIndex], nil
}

// ImageDataURI embeds image bytes in a data URI. E.g., "data:image/png;base64,iVBORw0..."
func ImageDataURI(image []byte) string {
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}
