package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiable marks a range that cannot be served for the file.
var ErrUnsatisfiable = errors.New("range not satisfiable")

const unitPrefix = "bytes="

// playbackStart is the range browsers send to begin playback.
const playbackStart = "bytes=0-"

// Range is an inclusive byte span within a file.
type Range struct {
	Start int64
	End   int64
}

// Length is the number of bytes in the span.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a file of size.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a Range header against a file of size bytes.
func ParseRange(header string, size int64) (Range, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, unitPrefix) {
		return Range{}, fmt.Errorf("%w: unsupported unit in %q", ErrUnsatisfiable, header)
	}
	spec := strings.TrimSpace(strings.TrimPrefix(header, unitPrefix))
	if strings.Contains(spec, ",") {
		return Range{}, fmt.Errorf("%w: multiple ranges", ErrUnsatisfiable)
	}
	startText, endText, ok := strings.Cut(spec, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: missing '-' in %q", ErrUnsatisfiable, spec)
	}

	var (
		r   = Range{Start: 0, End: size - 1}
		err error
	)
	if startText = strings.TrimSpace(startText); startText != "" {
		if r.Start, err = parseOffset(startText); err != nil {
			return Range{}, err
		}
	}
	if endText = strings.TrimSpace(endText); endText != "" {
		end, err := parseOffset(endText)
		if err != nil {
			return Range{}, err
		}
		if end < r.Start {
			return Range{}, fmt.Errorf("%w: end %d before start %d", ErrUnsatisfiable, end, r.Start)
		}
		r.End = min(end, size-1)
	}
	if r.Start >= size {
		return Range{}, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiable, r.Start, size)
	}
	return r, nil
}

func parseOffset(text string) (int64, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid offset %q", ErrUnsatisfiable, text)
	}
	return n, nil
}

// StartsPlayback reports whether a request with this Range header begins a
// playback session: either no range at all or exactly "bytes=0-".
func StartsPlayback(header string) bool {
	header = strings.TrimSpace(header)
	return header == "" || header == playbackStart
}
