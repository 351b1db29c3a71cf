package search

import "github.com/superadviser/query-gateway/internal/models"

// Request is a search query for the Serper API.
type Request struct {
	Q           string            `json:"q"`
	Type        models.SearchType `json:"-"`
	GL          string            `json:"gl,omitempty"`  // region code (ISO 3166-1 alpha-2)
	HL          string            `json:"hl,omitempty"`  // language code (ISO 639-1)
	Num         int               `json:"num,omitempty"` // number of results
	TBS         string            `json:"tbs,omitempty"` // time-based filter, e.g. qdr:w
	Autocorrect *bool             `json:"autocorrect,omitempty"`
}

// Response contains raw result records from the Serper API. Records are kept
// as loose maps; the synthesizer only reads a handful of well-known fields.
type Response struct {
	SearchParameters map[string]any   `json:"searchParameters"`
	Organic          []map[string]any `json:"organic"`
	News             []map[string]any `json:"news,omitempty"`
	Images           []map[string]any `json:"images,omitempty"`
	KnowledgeGraph   map[string]any   `json:"knowledgeGraph,omitempty"`
	AnswerBox        map[string]any   `json:"answerBox,omitempty"`
}
