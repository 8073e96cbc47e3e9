package media

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"LinkChat/tools/errs"
	"LinkChat/tools/ids"

	"github.com/pkg/errors"
)

// Uploader turns an inline image payload into a servable URL. Binary hosting is
// an external collaborator; swap this interface for a cloud implementation.
type Uploader interface {
	Upload(ctx context.Context, dataURI string) (string, error)
}

// LocalUploader decodes data-URI payloads onto local disk and serves them from
// a static route. Good enough for a single node; not a CDN.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithMessage(err, "create media dir")
	}
	return &LocalUploader{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

var extByMime = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (u *LocalUploader) Upload(_ context.Context, dataURI string) (string, error) {
	mime, payload, ok := splitDataURI(dataURI)
	if !ok {
		return "", errs.ErrValidation.WithDetail("malformed image data")
	}
	ext, ok := extByMime[mime]
	if !ok {
		return "", errs.ErrValidation.WithDetail("unsupported image type " + mime)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errs.ErrValidation.WithDetail("image is not valid base64")
	}

	name := ids.GenerateString() + ext
	if err := os.WriteFile(filepath.Join(u.Dir, name), raw, 0o644); err != nil {
		return "", errors.WithMessage(err, "write image")
	}
	return u.BaseURL + "/" + name, nil
}

// splitDataURI parses data:<mime>;base64,<payload>.
func splitDataURI(s string) (mime, payload string, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", "", false
	}
	rest := s[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", "", false
	}
	return rest[:sep], rest[sep+len(";base64,"):], true
}
