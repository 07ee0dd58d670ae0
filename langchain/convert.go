package langchain

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"github.com/tmc/langchaingo/llms"

	"github.com/unicall/unicall/llm"
	"github.com/unicall/unicall/tool"
)

func convertMessages(messages []llm.Message) ([]llms.MessageContent, error) {
	var out []llms.MessageContent

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Text()))

		case llm.RoleUser:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeHuman}
			for _, part := range msg.Parts {
				switch part.Kind {
				case llm.PartText:
					mc.Parts = append(mc.Parts, llms.TextContent{Text: part.Text})
				case llm.PartImage:
					mediaType := part.MediaType
					if mediaType == "" {
						mediaType = "image/png"
					}
					mc.Parts = append(mc.Parts, llms.BinaryContent{MIMEType: mediaType, Data: part.ImageData})
				default:
					return nil, fmt.Errorf("langchain: user message may not carry %q parts", part.Kind)
				}
			}
			out = append(out, mc)

		case llm.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			for _, part := range msg.Parts {
				switch part.Kind {
				case llm.PartText:
					mc.Parts = append(mc.Parts, llms.TextContent{Text: part.Text})
				case llm.PartToolCall:
					mc.Parts = append(mc.Parts, llms.ToolCall{
						ID:   part.ToolCall.ID,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      part.ToolCall.Name,
							Arguments: string(part.ToolCall.Arguments),
						},
					})
				default:
					return nil, fmt.Errorf("langchain: assistant message may not carry %q parts", part.Kind)
				}
			}
			out = append(out, mc)

		case llm.RoleTool:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeTool}
			for _, part := range msg.Parts {
				if part.Kind != llm.PartToolResult || part.ToolResult == nil {
					return nil, fmt.Errorf("langchain: tool message may only carry tool_result parts, got %q", part.Kind)
				}
				mc.Parts = append(mc.Parts, llms.ToolCallResponse{
					ToolCallID: part.ToolResult.ToolCallID,
					Content:    part.ToolResult.Content,
				})
			}
			out = append(out, mc)

		default:
			return nil, fmt.Errorf("langchain: unsupported message role %q", msg.Role)
		}
	}

	return out, nil
}

// MessagesFromContents lifts langchaingo message contents back into the
// neutral form. Inverse of convertMessages.
func MessagesFromContents(contents []llms.MessageContent) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(contents))
	for _, mc := range contents {
		msg, err := MessageFromContent(mc)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// MessageFromContent converts one langchaingo message content back into the
// neutral form.
func MessageFromContent(mc llms.MessageContent) (llm.Message, error) {
	role, err := roleFromChatMessageType(mc.Role)
	if err != nil {
		return llm.Message{}, err
	}

	var parts []llm.Part
	for _, part := range mc.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			parts = append(parts, llm.TextPart(p.Text))
		case llms.BinaryContent:
			parts = append(parts, llm.ImagePart(p.Data, p.MIMEType))
		case llms.ToolCall:
			if p.FunctionCall == nil {
				return llm.Message{}, fmt.Errorf("langchain: tool call %q carries no function call", p.ID)
			}
			parts = append(parts, llm.ToolCallPart(p.ID, p.FunctionCall.Name, json.RawMessage(p.FunctionCall.Arguments)))
		case llms.ToolCallResponse:
			parts = append(parts, llm.ToolResultPart(p.ToolCallID, p.Content))
		default:
			return llm.Message{}, fmt.Errorf("langchain: unsupported content part %T", part)
		}
	}
	return llm.Message{Role: role, Parts: parts}, nil
}

func roleFromChatMessageType(t llms.ChatMessageType) (llm.Role, error) {
	switch t {
	case llms.ChatMessageTypeSystem:
		return llm.RoleSystem, nil
	case llms.ChatMessageTypeHuman:
		return llm.RoleUser, nil
	case llms.ChatMessageTypeAI:
		return llm.RoleAssistant, nil
	case llms.ChatMessageTypeTool:
		return llm.RoleTool, nil
	default:
		return "", fmt.Errorf("langchain: unsupported chat message type %q", t)
	}
}

func convertTools(tools []*tool.Definition) ([]llms.Tool, error) {
	specs := make([]llms.Tool, 0, len(tools))
	for _, d := range tools {
		var doc map[string]any
		if err := json.Unmarshal(d.Parameters, &doc); err != nil {
			return nil, fmt.Errorf("langchain: invalid parameter schema for tool %q: %v", d.Name, err)
		}
		specs = append(specs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  doc,
			},
		})
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
