package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/visionex-project/adcomposite/composer/impl/layout"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	yaOpenai "github.com/visionex-project/adcomposite/pkg/openai"
)

const LAYOUT_SYSTEM_PROMPT = `You are an art director placing Japanese advertising copy on a photo.
The user gives you the image, its size in pixels and the copy that must fit.
Propose exactly 3 layout alternatives. Each alternative puts the text in a different region of the image
and never covers the main subject (people, products, faces).

For every alternative return:
- "id": a short name
- "headline", "tagline", "cta": {"x", "y", "maxWidth", "align"} where (x, y) is the top-left corner of a
  text box that is maxWidth pixels wide and align is "left", "center" or "right".
  Omit "tagline" when the user says there is none.
- "orientation": "vertical" only for a short all-Japanese headline set top-to-bottom, otherwise "horizontal"
- "contrastZones": [{"region": {"x", "y", "width", "height"}, "brightness": "light" | "dark" | "mixed"}]
  describing the background behind the text.

Keep every coordinate at least 40px from the image edges. Headline boxes are at least 200px wide.
Answer with a single JSON object {"alternatives": [...]} inside a ` + "```json" + ` block and nothing else.`

// ChatOracle asks a multimodal chat model for layouts.
type ChatOracle struct {
	client yaOpenai.Client
	// E.g., "gpt-4o", "gemini-1.5-flash"
	model string
}

func NewChatOracle(client yaOpenai.Client, model string) *ChatOracle {
	return &ChatOracle{client: client, model: model}
}

func (o *ChatOracle) ProposeLayouts(ctx context.Context, request layout.OracleRequest) ([]model.LayoutAlternative, error) {
	response, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: LAYOUT_SYSTEM_PROMPT,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: describe(request),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    yaOpenai.ImageDataURI(request.Image),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	content, err := yaOpenai.GetCompletionContent(response)
	if err != nil {
		return nil, err
	}
	return ParseAlternatives(content)
}

func describe(request layout.OracleRequest) string {
	var description strings.Builder
	fmt.Fprintf(&description, "Image size: %dx%d pixels.\n", request.Width, request.Height)
	fmt.Fprintf(&description, "Headline: %q\n", request.HeadlineText)
	if request.HasTagline {
		description.WriteString("There is a tagline under the headline.\n")
	} else {
		description.WriteString("There is no tagline.\n")
	}
	if request.HasLogo {
		description.WriteString("A logo sits in the bottom-right corner; keep text away from it.\n")
	}
	description.WriteString("There is a call-to-action button.")
	return description.String()
}

// ParseAlternatives reads alternatives from a model answer: a ```json block (or bare JSON) holding
// either {"alternatives": [...]} or the array itself.
func ParseAlternatives(content string) ([]model.LayoutAlternative, error) {
	jsonText, err := yaOpenai.ExtractJson(content)
	if err != nil {
		trimmed := strings.TrimSpace(content)
		if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			return nil, fmt.Errorf("%w: %v", layout.ErrMalformedLayout, err)
		}
		jsonText = trimmed
	}
	jsonText = strings.TrimSpace(jsonText)

	if strings.HasPrefix(jsonText, "[") {
		var alternatives []model.LayoutAlternative
		if err := json.Unmarshal([]byte(jsonText), &alternatives); err != nil {
			return nil, fmt.Errorf("%w: %v", layout.ErrMalformedLayout, err)
		}
		return alternatives, nil
	}

	var wrapped struct {
		Alternatives []model.LayoutAlternative `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(jsonText), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", layout.ErrMalformedLayout, err)
	}
	return wrapped.Alternatives, nil
}
