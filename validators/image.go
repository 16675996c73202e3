package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrImageTooLarge    = errors.New("Image too large")
	ErrImageUnsupported = errors.New("Unsupported image type")
	ErrNoImage          = errors.New("No image provided")
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ImageValidator checks an uploaded item image. The returned code is the
// HTTP status to answer with when err is not nil. On success the file is
// rewound and returned together with its detected MIME type
func ImageValidator(fh *multipart.FileHeader, maxSize int64) (code int, f multipart.File, mime string, err error) {
	if fh == nil {
		return http.StatusBadRequest, nil, "", ErrNoImage
	}

	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, nil, "", ErrImageTooLarge
	}

	f, err = fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, "", err
	}

	// Headers are easy to spoof so the content itself is sniffed
	m, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, "", err
	}

	if !mimetype.EqualsAny(m.String(), allowedImageTypes...) {
		f.Close()
		return http.StatusBadRequest, nil, "", ErrImageUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, "", err
	}

	return 0, f, m.String(), nil
}
