package artifact

// TimeLayout format timestamp yang disimpan di history.json
const TimeLayout = "2006-01-02 15:04:05"

// DefaultMIMEType is assumed when the uploader does not declare one.
const DefaultMIMEType = "image/jpeg"

// Record is one stored analysis: the uploaded image, the model output and when it happened.
// Fields are written once when the record is created and never mutated.
type Record struct {
	Time      string `json:"time"`
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
	Result    string `json:"result"`
}

// Upload is an image as received from the user.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ContentType returns the declared MIME type, falling back to DefaultMIMEType.
func (u Upload) ContentType() string {
	if u.MIMEType == "" {
		return DefaultMIMEType
	}
	return u.MIMEType
}
