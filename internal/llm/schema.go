package llm

// BuildItemsJSONSchema returns the JSON-Schema for a {"items": [...]} response.
// Only item_number is required; prices may come back as strings or numbers.
func BuildItemsJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item_number": map[string]any{"type": []string{"string", "number"}},
			"price":       map[string]any{"type": []string{"string", "number", "null"}},
			"date":        map[string]any{"type": []string{"string", "null"}},
			"time":        map[string]any{"type": []string{"string", "null"}},
			"description": map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"item_number"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"items"},
	}
}
