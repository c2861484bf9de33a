package config

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 so names fit the tree sidebar and VARCHAR(255)
	// columns if the store ever moves off the key-value layout.
	MaxProjectNameLength = 255

	// MaxReportNameLength is the maximum length for report names.
	MaxReportNameLength = 255

	// MaxFolderNameLength is the maximum length for folder names.
	// Same as report names for consistency.
	MaxFolderNameLength = 255

	// MaxProjectDescriptionLength bounds the optional project description.
	MaxProjectDescriptionLength = 2000

	// MaxImageDescriptionLength is the cap applied after sanitizing an
	// image description. Descriptions are echoed into the prompt and into
	// alt attributes, so they stay short.
	MaxImageDescriptionLength = 100

	// MaxFindingsLength bounds the findings text sent to the model.
	MaxFindingsLength = 200_000

	// MaxImageBytes bounds a single decoded image upload.
	MaxImageBytes = 20 << 20
)
