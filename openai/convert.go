package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"github.com/samber/lo"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// convertMessages translates the neutral conversation into chat completion
// message params. Tool-role turns expand into one tool message per result.
func convertMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var out []openai.ChatCompletionMessageParamUnion

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Text()))

		case llm.RoleUser:
			union, err := convertUserMessage(msg)
			if err != nil {
				return nil, err
			}
			out = append(out, union)

		case llm.RoleAssistant:
			union, err := convertAssistantMessage(msg)
			if err != nil {
				return nil, err
			}
			out = append(out, union)

		case llm.RoleTool:
			for _, part := range msg.Parts {
				if part.Kind != llm.PartToolResult || part.ToolResult == nil {
					return nil, fmt.Errorf("openai: tool message may only carry tool_result parts, got %q", part.Kind)
				}
				out = append(out, openai.ToolMessage(part.ToolResult.Content, part.ToolResult.ToolCallID))
			}

		default:
			return nil, fmt.Errorf("openai: unsupported message role %q", msg.Role)
		}
	}

	return out, nil
}

func convertUserMessage(msg llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	textOnly := true
	for _, part := range msg.Parts {
		if part.Kind != llm.PartText {
			textOnly = false
			break
		}
	}
	if textOnly {
		return openai.UserMessage(msg.Text()), nil
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	for _, part := range msg.Parts {
		switch part.Kind {
		case llm.PartText:
			parts = append(parts, openai.TextContentPart(part.Text))
		case llm.PartImage:
			mediaType := part.MediaType
			if mediaType == "" {
				mediaType = "image/png"
			}
			dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(part.ImageData))
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}))
		default:
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: user message may not carry %q parts", part.Kind)
		}
	}
	return openai.UserMessage(parts), nil
}

func convertAssistantMessage(msg llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if text := msg.Text(); text != "" {
		assistant.Content.OfString = openai.String(text)
	}

	for _, part := range msg.Parts {
		switch part.Kind {
		case llm.PartText:
			// Already folded into Content above.
		case llm.PartToolCall:
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: part.ToolCall.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      part.ToolCall.Name,
						Arguments: string(part.ToolCall.Arguments),
					},
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: assistant message may not carry %q parts", part.Kind)
		}
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}

// MessagesFromParams lifts chat completion message params back into the
// neutral form. Inverse of convertMessages, up to its tool-message
// expansion: each tool message comes back as its own tool-role turn.
func MessagesFromParams(params []openai.ChatCompletionMessageParamUnion) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(params))
	for _, p := range params {
		msg, err := MessageFromParam(p)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// MessageFromParam converts one chat completion message param back into the
// neutral form.
func MessageFromParam(p openai.ChatCompletionMessageParamUnion) (llm.Message, error) {
	switch {
	case p.OfSystem != nil:
		return llm.System(systemText(p.OfSystem.Content)), nil

	case p.OfUser != nil:
		return messageFromUserParam(p.OfUser.Content)

	case p.OfAssistant != nil:
		return messageFromAssistantParam(*p.OfAssistant)

	case p.OfTool != nil:
		return llm.ToolResults(llm.ToolResult{
			ToolCallID: p.OfTool.ToolCallID,
			Content:    toolText(p.OfTool.Content),
		}), nil

	default:
		return llm.Message{}, fmt.Errorf("openai: unsupported message param variant")
	}
}

func systemText(content openai.ChatCompletionSystemMessageParamContentUnion) string {
	if len(content.OfArrayOfContentParts) > 0 {
		var text string
		for _, part := range content.OfArrayOfContentParts {
			text += part.Text
		}
		return text
	}
	return content.OfString.Value
}

func toolText(content openai.ChatCompletionToolMessageParamContentUnion) string {
	if len(content.OfArrayOfContentParts) > 0 {
		var text string
		for _, part := range content.OfArrayOfContentParts {
			text += part.Text
		}
		return text
	}
	return content.OfString.Value
}

func messageFromUserParam(content openai.ChatCompletionUserMessageParamContentUnion) (llm.Message, error) {
	if len(content.OfArrayOfContentParts) == 0 {
		return llm.UserText(content.OfString.Value), nil
	}

	var parts []llm.Part
	for _, part := range content.OfArrayOfContentParts {
		switch {
		case part.OfText != nil:
			parts = append(parts, llm.TextPart(part.OfText.Text))
		case part.OfImageURL != nil:
			img, err := imagePartFromDataURL(part.OfImageURL.ImageURL.URL)
			if err != nil {
				return llm.Message{}, err
			}
			parts = append(parts, img)
		default:
			return llm.Message{}, fmt.Errorf("openai: unsupported user content part")
		}
	}
	return llm.User(parts...), nil
}

func messageFromAssistantParam(p openai.ChatCompletionAssistantMessageParam) (llm.Message, error) {
	var parts []llm.Part
	if text := p.Content.OfString.Value; text != "" {
		parts = append(parts, llm.TextPart(text))
	}
	for _, tc := range p.ToolCalls {
		if tc.OfFunction == nil {
			return llm.Message{}, fmt.Errorf("openai: unsupported tool call variant")
		}
		fn := tc.OfFunction
		parts = append(parts, llm.ToolCallPart(fn.ID, fn.Function.Name, json.RawMessage(fn.Function.Arguments)))
	}
	return llm.Assistant(parts...), nil
}

// imagePartFromDataURL decodes a data: URL of the shape convertUserMessage
// produces. Remote image URLs have no neutral representation.
func imagePartFromDataURL(url string) (llm.Part, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return llm.Part{}, fmt.Errorf("openai: image URL %q is not a data URL", url)
	}
	mediaType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return llm.Part{}, fmt.Errorf("openai: image URL %q is not base64-encoded", url)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return llm.Part{}, fmt.Errorf("openai: invalid base64 image data: %v", err)
	}
	return llm.ImagePart(data, mediaType), nil
}

func convertTools(tools []*tool.Definition) ([]openai.ChatCompletionToolUnionParam, error) {
	specs := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, d := range tools {
		var doc map[string]any
		if err := json.Unmarshal(d.Parameters, &doc); err != nil {
			return nil, fmt.Errorf("openai: invalid parameter schema for tool %q: %v", d.Name, err)
		}
		specs = append(specs, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  shared.FunctionParameters(doc),
		}))
	}
	return specs, nil
}

func toolNames(tools []*tool.Definition) []string {
	return lo.Map(tools, func(d *tool.Definition, _ int) string { return d.Name })
}

func lastUserText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Text()
		}
	}
	return ""
}
