package imagesource

import (
	"bytes"
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"smartfarm-dashboard-go/internal/farmerr"
)

// AllowedExtensions is the set the inference backend accepts.
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

func IsAllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// LocalFromFile reads path into a Local source. The file must carry an
// accepted extension and decode as an image.
func LocalFromFile(path string) (Local, error) {
	const op = "local"
	if !IsAllowedExtension(path) {
		return Local{}, farmerr.New(farmerr.KindUserInputMissing, op,
			"unsupported file type, use one of "+strings.Join(AllowedExtensions, " "))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "cannot read " + filepath.Base(path)
		if errors.Is(err, fs.ErrNotExist) {
			msg = filepath.Base(path) + " does not exist"
		}
		return Local{}, farmerr.Wrap(farmerr.KindUserInputMissing, op, msg, err)
	}
	return LocalFromBytes(filepath.Base(path), data)
}

// LocalFromBytes validates data and wraps it as a Local source.
func LocalFromBytes(filename string, data []byte) (Local, error) {
	const op = "local"
	if len(data) == 0 {
		return Local{}, farmerr.New(farmerr.KindUserInputMissing, op, filename+" is empty")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return Local{}, farmerr.Wrap(farmerr.KindUserInputMissing, op, filename+" is not a readable image", err)
	}
	return Local{
		Bytes:    data,
		Filename: filename,
		MimeType: mimetype.Detect(data).String(),
	}, nil
}
