package reports

// StoredImage binds an image identifier to its report and on-disk file.
// Images reference reports by id and are not embedded in the tree.
type StoredImage struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"reportId"`
	Description string    `json:"description"`
	FilePath    string    `json:"filePath"`
	CreatedAt   Timestamp `json:"createdAt"`
}
