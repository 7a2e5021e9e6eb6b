package autocrud

// Envelope is the list response.
type Envelope struct {
	Count       int              `json:"count"`
	CurrentPage int              `json:"current_page"`
	TotalPages  int              `json:"total_pages"`
	Next        *string          `json:"next"`
	Previous    *string          `json:"previous"`
	IDs         []any            `json:"ids"`
	Results     []map[string]any `json:"results"`

	FieldMetadata
}

// NewEnvelope shapes a page. ids are read from the idKey of each result.
func NewEnvelope(page *Page, results []map[string]any, meta FieldMetadata, idKey string) *Envelope {
	if results == nil {
		results = []map[string]any{}
	}

	ids := make([]any, 0, len(results))
	for _, r := range results {
		if id, ok := r[idKey]; ok {
			ids = append(ids, id)
		}
	}

	return &Envelope{
		Count:         page.Count,
		CurrentPage:   page.Number,
		TotalPages:    page.TotalPages,
		Next:          page.Next,
		Previous:      page.Previous,
		IDs:           ids,
		Results:       results,
		FieldMetadata: meta,
	}
}

// CountResponse answers check_last_updated requests.
type CountResponse struct {
	Count int `json:"count"`
}
