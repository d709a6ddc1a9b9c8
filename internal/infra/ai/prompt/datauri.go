package prompt

import (
	"encoding/base64"
	"fmt"
)

// DataURI encodes image bytes as "data:<mime>;base64,<payload>".
func DataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
