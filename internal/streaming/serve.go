package streaming

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

const defaultContentType = "application/octet-stream"

// Serve answers r from content, a file of size bytes, honouring its Range
// header.
func Serve(w http.ResponseWriter, r *http.Request, content io.ReadSeeker, size int64, contentType string) error {
	header := r.Header.Get("Range")
	if header == "" {
		return Write(w, r, content, size, contentType, nil)
	}
	rng, err := ParseRange(header, size)
	if err != nil {
		Reject(w, size)
		return nil
	}
	return Write(w, r, content, size, contentType, &rng)
}

// Reject writes a 416 response for a file of size bytes.
func Reject(w http.ResponseWriter, size int64) {
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
	h.Set("Content-Length", "0")
	w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
}

// Write sends the whole file (rng nil, 200) or the given span (206). HEAD
// requests get the headers only. The returned error is from the body copy,
// typically a client disconnect.
func Write(w http.ResponseWriter, r *http.Request, content io.ReadSeeker, size int64, contentType string, rng *Range) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")

	status := http.StatusOK
	start, length := int64(0), size
	if rng != nil {
		status = http.StatusPartialContent
		start, length = rng.Start, rng.Length()
		h.Set("Content-Range", rng.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))

	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return nil
	}
	if _, err := content.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", start, err)
	}
	w.WriteHeader(status)
	if _, err := io.CopyN(w, content, length); err != nil {
		return fmt.Errorf("copy %d bytes: %w", length, err)
	}
	return nil
}
