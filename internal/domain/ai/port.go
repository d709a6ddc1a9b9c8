package ai

import "context"

// Request is a single user turn: an instruction prompt plus one image.
type Request struct {
	Prompt   string
	MIMEType string
	// ImageDataURI holds "data:<mime>;base64,<payload>".
	ImageDataURI string
}

type Client interface {
	Analyze(ctx context.Context, req Request) (string, error)
	Model() string
}
