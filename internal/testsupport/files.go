package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// PatternByte is the byte WriteFile stores at offset off.
func PatternByte(off int64) byte {
	return byte(off % 251)
}

// WriteFile fills path with size bytes of a position-dependent pattern so range
// reads can be checked against PatternByte. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = PatternByte(int64(i))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
