package provider

import (
	"encoding/json"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

// Tool definitions arrive in MCP's JSON Schema shape and each provider wants
// its own framing of the same schema. Anthropic takes the schema verbatim
// under input_schema, OpenAI-compatible APIs nest it under
// function.parameters, and Ollama requires the schema decomposed into its
// typed ToolFunctionParameters struct.

// ConvertToolsToAnthropic converts MCP tools to the Anthropic tools array.
func ConvertToolsToAnthropic(tools []mcptypes.Tool) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropicTool, len(tools))
	for i, tool := range tools {
		schema := map[string]any{
			"type":       tool.InputSchema.Type,
			"properties": tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			schema["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			schema["$defs"] = tool.InputSchema.Defs
		}

		result[i] = anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		}
	}
	return result
}

// ConvertToolsToOpenAI converts MCP tools to the OpenAI function-tool array.
// OpenRouter uses the same format.
func ConvertToolsToOpenAI(tools []mcptypes.Tool) []openaiTool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openaiTool, len(tools))
	for i, tool := range tools {
		params := map[string]any{
			"type":       tool.InputSchema.Type,
			"properties": tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		result[i] = openaiTool{
			Type: "function",
			Function: openaiFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		}
	}
	return result
}

// ConvertToolsToOllama converts MCP tools to the Ollama API tool format.
func ConvertToolsToOllama(tools []mcptypes.Tool) []api.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertSchemaToOllamaParameters(tool.InputSchema),
			},
		})
	}
	return result
}

func convertSchemaToOllamaParameters(schema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       schema.Type,
		Required:   schema.Required,
		Properties: make(map[string]api.ToolProperty),
	}
	if schema.Defs != nil {
		params.Defs = schema.Defs
	}
	for name, value := range schema.Properties {
		params.Properties[name] = convertOllamaProperty(value)
	}
	return params
}

// convertOllamaProperty turns one JSON Schema property into Ollama's typed
// ToolProperty. Unrecognized keys are dropped; only the fields Ollama models
// actually consume survive the conversion.
func convertOllamaProperty(value any) api.ToolProperty {
	prop := api.ToolProperty{}

	propMap, ok := value.(map[string]any)
	if !ok {
		raw, err := json.Marshal(value)
		if err != nil {
			return prop
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return prop
		}
		propMap = m
	}

	// "type" may be a single string or a list of alternatives.
	if typeVal, ok := propMap["type"]; ok {
		switch t := typeVal.(type) {
		case string:
			prop.Type = api.PropertyType{t}
		case []string:
			prop.Type = api.PropertyType(t)
		case []any:
			types := make([]string, 0, len(t))
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
			prop.Type = api.PropertyType(types)
		}
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}

	if enumVal, ok := propMap["enum"].([]any); ok {
		prop.Enum = enumVal
	}

	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}

	if anyOf, ok := propMap["anyOf"].([]any); ok {
		props := make([]api.ToolProperty, 0, len(anyOf))
		for _, item := range anyOf {
			props = append(props, convertOllamaProperty(item))
		}
		prop.AnyOf = props
	}

	return prop
}
