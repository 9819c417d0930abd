package models

// File is one row of the files table. UploadTime is stored as given and
// never parsed.
type File struct {
	Filename       string `json:"filename"`
	UploadTime     string `json:"upload_time"`
	AdditionalInfo string `json:"additional_info"`
}
