package models

// CatalogItem pairs a word-crop image with its machine-suggested label.
// The pairing is positional: the Nth image of a folder gets the Nth line
// of that folder's label file, or "" when the label file is shorter.
type CatalogItem struct {
	ImagePath      string `json:"image_path"`
	Folder         string `json:"folder"`
	Filename       string `json:"filename"`
	SuggestedLabel string `json:"suggested_label"`
	Index          int    `json:"index"`
}

// FolderStats summarizes one catalog folder for integrity checks.
type FolderStats struct {
	Folder     string `json:"folder"`
	ImageCount int    `json:"image_count"`
	LabelCount int    `json:"label_count"`
	Match      bool   `json:"match"`
}
