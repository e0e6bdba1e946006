package openai

import (
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestExtractJson(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"fenced", "Here you go:\n```json\n[1, 2]\n```\nDone.", "\n[1, 2]\n", false},
		{"no block", "[1, 2]", "", true},
		{"unclosed", "```json\n[1, 2]", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJson(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJson error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractJson = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetCompletionContent(t *testing.T) {
	if _, err := GetCompletionContent(openai.ChatCompletionResponse{}); err == nil {
		t.Error("expected an error without choices")
	}
	content, err := GetCompletionContent(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	})
	if err != nil || content != "ok" {
		t.Errorf("GetCompletionContent = %q, %v", content, err)
	}
}

func TestImageDataURI(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := ImageDataURI(png); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("ImageDataURI(png) = %q", got)
	}
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	if got := ImageDataURI(jpeg); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("ImageDataURI(jpeg) = %q", got)
	}
	if got := ImageDataURI([]byte("plain text")); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("ImageDataURI(text) = %q", got)
	}
}
