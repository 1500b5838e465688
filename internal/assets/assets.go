// Package assets turns uploaded images into references the catalog can
// store. The catalog treats references as opaque strings.
package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/iliyamo/event-showcase/internal/apperr"
)

// Store saves an asset and returns its reference.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// sniff fills in a missing content type and rejects anything that is not
// an image.
func sniff(contentType string, data []byte) (string, error) {
	ct := strings.TrimSpace(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", apperr.Validation("only images can be uploaded, got %s", ct)
	}
	return ct, nil
}

// DataURL embeds the asset in the reference itself as a data: URI.
type DataURL struct {
	MaxBytes int64
}

func (d DataURL) Put(_ context.Context, _ string, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("empty upload")
	}
	if d.MaxBytes > 0 && int64(len(data)) > d.MaxBytes {
		return "", apperr.Validation("upload exceeds %d bytes", d.MaxBytes)
	}
	ct, err := sniff(contentType, data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", ct, base64.StdEncoding.EncodeToString(data)), nil
}
