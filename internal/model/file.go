package model

// MaxUploadSize is the largest file the file service accepts.
const MaxUploadSize = 10 * 1024 * 1024

// FileInfo describes an uploaded file. Its ID is what attachments and
// the info/download/delete calls refer to.
type FileInfo struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadTime  Timestamp `json:"upload_time"`
	FilePath    string    `json:"file_path"`
}
