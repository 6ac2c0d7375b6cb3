package model

type Document struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	UploadedBy string `json:"uploaded_by"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	FileSize   int64  `json:"file_size"`
	MimeType   string `json:"mime_type"`
	State      int    `json:"state"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}
