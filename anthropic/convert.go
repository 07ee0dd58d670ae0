package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

// convertMessages translates the neutral conversation into Anthropic wire
// form. System turns are hoisted into the dedicated system field; tool-role
// turns become user messages carrying tool-result blocks, which is how the
// Messages API expects them.
func convertMessages(messages []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Text()})

		case llm.RoleUser:
			blocks, err := convertUserParts(msg.Parts)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, anthropic.NewUserMessage(blocks...))

		case llm.RoleAssistant:
			blocks, err := convertAssistantParts(msg.Parts)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case llm.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				if part.Kind != llm.PartToolResult || part.ToolResult == nil {
					return nil, nil, fmt.Errorf("anthropic: tool message may only carry tool_result parts, got %q", part.Kind)
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: part.ToolResult.ToolCallID,
						IsError:   anthropic.Bool(part.ToolResult.IsError),
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: part.ToolResult.Content}},
						},
					},
				})
			}
			out = append(out, anthropic.NewUserMessage(blocks...))

		default:
			return nil, nil, fmt.Errorf("anthropic: unsupported message role %q", msg.Role)
		}
	}

	return system, out, nil
}

func convertUserParts(parts []llm.Part) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range parts {
		switch part.Kind {
		case llm.PartText:
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
		case llm.PartImage:
			mediaType := part.MediaType
			if mediaType == "" {
				mediaType = "image/png"
			}
			encoded := base64.StdEncoding.EncodeToString(part.ImageData)
			blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, encoded))
		default:
			return nil, fmt.Errorf("anthropic: user message may not carry %q parts", part.Kind)
		}
	}
	return blocks, nil
}

func convertAssistantParts(parts []llm.Part) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, part := range parts {
		switch part.Kind {
		case llm.PartText:
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfText: &anthropic.TextBlockParam{Text: part.Text},
			})
		case llm.PartToolCall:
			var input any
			if len(part.ToolCall.Arguments) > 0 {
				if err := json.Unmarshal(part.ToolCall.Arguments, &input); err != nil {
					return nil, fmt.Errorf("anthropic: invalid tool-call arguments for %q: %v", part.ToolCall.Name, err)
				}
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    part.ToolCall.ID,
					Name:  part.ToolCall.Name,
					Input: input,
				},
			})
		default:
			return nil, fmt.Errorf("anthropic: assistant message may not carry %q parts", part.Kind)
		}
	}
	return blocks, nil
}

// MessagesFromRequest lifts an Anthropic request back into the neutral form:
// each hoisted system block becomes a system turn, followed by the converted
// message params. Inverse of convertMessages.
func MessagesFromRequest(system []anthropic.TextBlockParam, params []anthropic.MessageParam) ([]llm.Message, error) {
	var out []llm.Message
	for _, block := range system {
		out = append(out, llm.System(block.Text))
	}
	for _, p := range params {
		msg, err := MessageFromParam(p)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// MessageFromParam converts one Anthropic message param back into the
// neutral form. A user param carrying tool-result blocks comes back as a
// tool-role message, mirroring how tool results travel on the wire.
func MessageFromParam(p anthropic.MessageParam) (llm.Message, error) {
	switch p.Role {
	case anthropic.MessageParamRoleUser:
		return messageFromUserParam(p.Content)
	case anthropic.MessageParamRoleAssistant:
		return messageFromAssistantParam(p.Content)
	default:
		return llm.Message{}, fmt.Errorf("anthropic: unsupported wire role %q", p.Role)
	}
}

func messageFromUserParam(blocks []anthropic.ContentBlockParamUnion) (llm.Message, error) {
	var parts []llm.Part
	var results []llm.ToolResult

	for _, block := range blocks {
		switch {
		case block.OfText != nil:
			parts = append(parts, llm.TextPart(block.OfText.Text))

		case block.OfImage != nil:
			source := block.OfImage.Source.OfBase64
			if source == nil {
				return llm.Message{}, fmt.Errorf("anthropic: only base64 image sources convert back")
			}
			data, err := base64.StdEncoding.DecodeString(source.Data)
			if err != nil {
				return llm.Message{}, fmt.Errorf("anthropic: invalid base64 image data: %v", err)
			}
			parts = append(parts, llm.ImagePart(data, string(source.MediaType)))

		case block.OfToolResult != nil:
			tr := block.OfToolResult
			var content string
			for _, c := range tr.Content {
				if c.OfText != nil {
					content += c.OfText.Text
				}
			}
			results = append(results, llm.ToolResult{
				ToolCallID: tr.ToolUseID,
				Content:    content,
				IsError:    tr.IsError.Value,
			})

		default:
			return llm.Message{}, fmt.Errorf("anthropic: unsupported user content block")
		}
	}

	if len(results) > 0 {
		if len(parts) > 0 {
			return llm.Message{}, fmt.Errorf("anthropic: tool results may not mix with other user content")
		}
		return llm.ToolResults(results...), nil
	}
	return llm.User(parts...), nil
}

func messageFromAssistantParam(blocks []anthropic.ContentBlockParamUnion) (llm.Message, error) {
	var parts []llm.Part
	for _, block := range blocks {
		switch {
		case block.OfText != nil:
			parts = append(parts, llm.TextPart(block.OfText.Text))

		case block.OfToolUse != nil:
			use := block.OfToolUse
			var args json.RawMessage
			if use.Input != nil {
				encoded, err := json.Marshal(use.Input)
				if err != nil {
					return llm.Message{}, fmt.Errorf("anthropic: tool-use input for %q does not marshal: %v", use.Name, err)
				}
				args = encoded
			}
			parts = append(parts, llm.ToolCallPart(use.ID, use.Name, args))

		default:
			return llm.Message{}, fmt.Errorf("anthropic: unsupported assistant content block")
		}
	}
	return llm.Assistant(parts...), nil
}

// convertTools builds Anthropic tool specs from the neutral definitions. The
// parameter schema's properties move into the SDK's input-schema shape.
func convertTools(tools []*tool.Definition) ([]anthropic.ToolUnionParam, error) {
	specs := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, d := range tools {
		var doc map[string]any
		if err := json.Unmarshal(d.Parameters, &doc); err != nil {
			return nil, fmt.Errorf("anthropic: invalid parameter schema for tool %q: %v", d.Name, err)
		}
		specs = append(specs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: doc["properties"],
				},
			},
		})
	}
	return specs, nil
}

func toolNames(tools []*tool.Definition) []string {
	return lo.Map(tools, func(d *tool.Definition, _ int) string { return d.Name })
}

// lastUserText renders the final user turn for inspection.
func lastUserText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Text()
		}
	}
	return ""
}
