package imagesource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/farmerr"
)

type fakeFetcher struct {
	calls []string
	img   *farmapi.Image
	err   error
}

func (f *fakeFetcher) FetchImage(_ context.Context, ref string) (*farmapi.Image, error) {
	f.calls = append(f.calls, ref)
	return f.img, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{0, 200, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("Should return local bytes without any network call", func(t *testing.T) {
		fetcher := &fakeFetcher{}
		r := NewResolver(fetcher, nil)
		data := pngBytes(t)

		p, err := r.Resolve(context.Background(), Local{Bytes: data, Filename: "leaf.png", MimeType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, &Payload{Data: data, Filename: "leaf.png", MimeType: "image/png"}, p)
		assert.Empty(t, fetcher.calls)
	})

	t.Run("Should sniff the MIME type of local bytes when missing", func(t *testing.T) {
		r := NewResolver(&fakeFetcher{}, nil)
		p, err := r.Resolve(context.Background(), Local{Bytes: pngBytes(t), Filename: "leaf.png"})
		require.NoError(t, err)
		assert.Equal(t, "image/png", p.MimeType)
	})

	t.Run("Should fetch a remote source exactly once", func(t *testing.T) {
		data := pngBytes(t)
		fetcher := &fakeFetcher{img: &farmapi.Image{Data: data, ContentType: "image/png"}}
		r := NewResolver(fetcher, nil)

		p, err := r.Resolve(context.Background(), Remote{URL: "/uploads/cam_1.png", Filename: "cam_1.png"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/uploads/cam_1.png"}, fetcher.calls)
		assert.Equal(t, data, p.Data)
		assert.Equal(t, "cam_1.png", p.Filename)
		assert.Equal(t, "image/png", p.MimeType)
	})

	t.Run("Should derive a filename from the URL", func(t *testing.T) {
		fetcher := &fakeFetcher{img: &farmapi.Image{Data: pngBytes(t)}}
		r := NewResolver(fetcher, nil)

		p, err := r.Resolve(context.Background(), Remote{URL: "http://farm.local/uploads/cam_2.png?x=1"})
		require.NoError(t, err)
		assert.Equal(t, "cam_2.png", p.Filename)
		assert.Equal(t, "image/png", p.MimeType)
	})

	t.Run("Should surface a remote failure without retrying", func(t *testing.T) {
		fetcher := &fakeFetcher{err: farmerr.New(farmerr.KindServerRejected, "image", "not found")}
		r := NewResolver(fetcher, nil)

		_, err := r.Resolve(context.Background(), Remote{URL: "/uploads/gone.jpg", Filename: "gone.jpg"})
		require.Error(t, err)
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
		assert.Len(t, fetcher.calls, 1)
	})

	t.Run("Should classify untyped fetch errors as transport", func(t *testing.T) {
		r := NewResolver(&fakeFetcher{err: errors.New("reset by peer")}, nil)
		_, err := r.Resolve(context.Background(), Remote{URL: "/uploads/a.jpg"})
		assert.True(t, farmerr.IsKind(err, farmerr.KindTransport))
	})

	t.Run("Should refuse a missing source", func(t *testing.T) {
		r := NewResolver(&fakeFetcher{}, nil)
		_, err := r.Resolve(context.Background(), nil)
		assert.True(t, farmerr.IsKind(err, farmerr.KindUserInputMissing))
	})
}

func TestLocalFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Should load a valid image", func(t *testing.T) {
		path := filepath.Join(dir, "leaf.png")
		require.NoError(t, os.WriteFile(path, pngBytes(t), 0o644))

		src, err := LocalFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "leaf.png", src.Filename)
		assert.Equal(t, "image/png", src.MimeType)
	})

	t.Run("Should reject an unsupported extension", func(t *testing.T) {
		_, err := LocalFromFile(filepath.Join(dir, "notes.txt"))
		assert.True(t, farmerr.IsKind(err, farmerr.KindUserInputMissing))
	})

	t.Run("Should reject bytes that are not an image", func(t *testing.T) {
		path := filepath.Join(dir, "fake.jpg")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))
		_, err := LocalFromFile(path)
		assert.True(t, farmerr.IsKind(err, farmerr.KindUserInputMissing))
	})

	t.Run("Should report a missing file", func(t *testing.T) {
		_, err := LocalFromFile(filepath.Join(dir, "missing.png"))
		require.Error(t, err)
		assert.Equal(t, "missing.png does not exist", farmerr.UserMessage(err, ""))
	})
}

func TestIsAllowedExtension(t *testing.T) {
	for name, want := range map[string]bool{
		"a.JPG": true, "a.jpeg": true, "a.png": true, "a.bmp": true, "a.webp": true,
		"a.gif": false, "a": false, "a.tiff": false,
	} {
		assert.Equal(t, want, IsAllowedExtension(name), name)
	}
}
