package messages

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var jsonNull = []byte(`null`)

// ContentOrParts is either a plain string or a sequence of typed content
// parts. It marshals to a JSON string when Content is set, otherwise to an
// array of parts.
type ContentOrParts struct {
	Content string
	Parts   []ContentPart
	_       struct{} // require keyed usage
}

func (c ContentOrParts) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(c.Content) != "" {
		return json.Marshal(c.Content)
	}
	if c.Parts == nil {
		return jsonNull, nil
	}
	return json.Marshal(c.Parts)
}

func (c *ContentOrParts) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)
	if jv.IsArray() {
		aj := jv.Array()
		parts := make([]ContentPart, len(aj))
		for idx, ajv := range aj {
			tpe := ajv.Get("type").String()
			switch tpe {
			case "text":
				var part TextContentPart
				if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
					return fmt.Errorf("invalid text part at %d: %w", idx, err)
				}
				parts[idx] = part
			default:
				return fmt.Errorf("content part at %d has an unknown type %q", idx, tpe)
			}
		}
		c.Parts = parts
		return nil
	}
	c.Content = jv.String()
	return nil
}

// AssistantContentOrParts is the assistant-side counterpart of
// ContentOrParts, additionally carrying refusal content.
type AssistantContentOrParts struct {
	Content string
	Refusal string
	_       struct{} // require keyed usage
}

func (c AssistantContentOrParts) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(c.Content) != "" && strings.TrimSpace(c.Refusal) != "" {
		return nil, fmt.Errorf("both Content and Refusal are set")
	}
	if strings.TrimSpace(c.Content) != "" {
		return json.Marshal(c.Content)
	}
	if strings.TrimSpace(c.Refusal) != "" {
		return json.Marshal(map[string]string{"refusal": c.Refusal})
	}
	return jsonNull, nil
}

func (c *AssistantContentOrParts) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)
	if jv.IsObject() {
		refusal := jv.Get("refusal")
		if !refusal.Exists() {
			return errors.New("missing required field 'refusal'")
		}
		c.Refusal = refusal.String()
		return nil
	}
	c.Content = jv.String()
	return nil
}

// ContentPart marks structs usable as user content parts.
type ContentPart interface {
	contentPart()
}

// Text creates a TextContentPart.
func Text(text string) TextContentPart {
	return TextContentPart{Text: text}
}

// TextContentPart is a text-only content part.
type TextContentPart struct {
	Text string `json:"text"`
	_    struct{}
}

func (TextContentPart) contentPart() {}

var tcpJSON = []byte(`{"type":"text"}`)

func (t TextContentPart) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(tcpJSON, "text", t.Text)
}

func (t *TextContentPart) UnmarshalJSON(input []byte) error {
	text := gjson.GetBytes(input, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	t.Text = text.String()
	return nil
}
