package model

type DocumentSummary struct {
	DocumentID string `json:"document_id"`
	Summary    string `json:"summary"`
	ModelUsed  string `json:"model_used"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}
