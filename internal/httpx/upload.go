package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/upload"
)

var errMissingFile = errors.New("missing file")

// formFile reads one multipart file and prepares it for the backend.
func formFile(w http.ResponseWriter, r *http.Request, field string, maxWidth uint) (upload.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxSize+1<<20)
	if err := r.ParseMultipartForm(upload.MaxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload.File{}, upload.ErrTooLarge
		}
		return upload.File{}, fmt.Errorf("%w: %s", errMissingFile, field)
	}
	file, hdr, err := r.FormFile(field)
	if err != nil {
		return upload.File{}, fmt.Errorf("%w: %s", errMissingFile, field)
	}
	defer file.Close()
	return upload.Prepare(hdr.Filename, file, maxWidth)
}
