package providers

import (
	"context"
)

// Captioner turns one MRI image into one diagnostic text string. The image
// must already be normalized to three-channel color; output length is bounded
// by the model's generation cap.
type Captioner interface {
	Caption(ctx context.Context, imageBytes []byte) (string, error)
}
