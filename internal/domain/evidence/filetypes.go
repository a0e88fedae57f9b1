package evidence

// maxSizeMB maps each supported mime type to its upload limit in megabytes.
var maxSizeMB = map[string]int64{
	"application/pdf":    100,
	"image/jpeg":         50,
	"image/jpg":          50,
	"image/png":          50,
	"image/gif":          25,
	"video/mp4":          500,
	"video/avi":          500,
	"video/mov":          500,
	"audio/mp3":          100,
	"audio/wav":          200,
	"audio/m4a":          100,
	"application/msword": 50,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": 50,
	"text/plain":                   10,
	"application/zip":              500,
	"application/x-rar-compressed": 500,
	"application/vnd.ms-excel":     50,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": 50,
}

// MaxSizeBytes returns the size limit for a mime type, or false when the type
// is not supported for upload.
func MaxSizeBytes(mimeType string) (int64, bool) {
	mb, ok := maxSizeMB[mimeType]
	if !ok {
		return 0, false
	}
	return mb << 20, true
}

// SupportedTypes lists the accepted mime types, for error responses.
func SupportedTypes() []string {
	out := make([]string, 0, len(maxSizeMB))
	for mt := range maxSizeMB {
		out = append(out, mt)
	}
	return out
}
