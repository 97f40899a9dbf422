// Package streaming serves media bytes with single-range support.
//
// Only the "bytes=<start>-[end]" form is accepted. A missing start means 0
// and a missing or oversized end means the last byte. Anything else,
// including start at or past the end of the file, is answered with 416.
package streaming
