package renderproposal

type Input struct {
	QuoteID       string `json:"quoteId"`
	RecommendedID string `json:"recommendedId"`
	Rationale     string `json:"rationale"`
	AccessCode    string `json:"accessCode"`
}

type Output struct {
	Folio          int64  `json:"folio"`
	FileName       string `json:"fileName"`
	RecommendedID  string `json:"recommendedId"`
	FilePath       string `json:"filePath,omitempty"`
	DocumentBase64 string `json:"documentBase64,omitempty"`
}
