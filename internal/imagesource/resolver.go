package imagesource

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
)

// Fetcher downloads the bytes of a gallery image.
type Fetcher interface {
	FetchImage(ctx context.Context, ref string) (*farmapi.Image, error)
}

type Resolver struct {
	fetcher Fetcher
	log     *log.Logger
}

func NewResolver(fetcher Fetcher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{fetcher: fetcher, log: logger.WithPrefix("Resolver")}
}

// Resolve produces the payload for src. A Local source never touches the
// network; a Remote source is fetched exactly once and not retried.
func (r *Resolver) Resolve(ctx context.Context, src Source) (*Payload, error) {
	const op = "resolve"
	switch s := src.(type) {
	case Local:
		if len(s.Bytes) == 0 {
			return nil, farmerr.New(farmerr.KindUserInputMissing, op, "the selected file is empty")
		}
		mimeType := s.MimeType
		if mimeType == "" {
			mimeType = mimetype.Detect(s.Bytes).String()
		}
		return &Payload{Data: s.Bytes, Filename: s.Filename, MimeType: mimeType}, nil

	case Remote:
		if s.URL == "" {
			return nil, farmerr.New(farmerr.KindUserInputMissing, op, "the gallery entry has no URL")
		}
		img, err := r.fetcher.FetchImage(ctx, s.URL)
		if err != nil {
			r.log.Warn("gallery image fetch failed", "url", s.URL, "err", err)
			return nil, farmerr.Wrap(farmerr.KindTransport, op, "fetch gallery image", err)
		}
		filename := s.Filename
		if filename == "" {
			filename = filenameFromURL(s.URL)
		}
		mimeType := img.ContentType
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = mimetype.Detect(img.Data).String()
		}
		r.log.Debug("resolved gallery image", "url", s.URL, "bytes", len(img.Data))
		return &Payload{Data: img.Data, Filename: filename, MimeType: mimeType}, nil

	case nil:
		return nil, farmerr.New(farmerr.KindUserInputMissing, op, "choose an image first")

	default:
		return nil, farmerr.New(farmerr.KindUserInputMissing, op, fmt.Sprintf("unsupported source %T", src))
	}
}

func filenameFromURL(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
	}
	return "image"
}
