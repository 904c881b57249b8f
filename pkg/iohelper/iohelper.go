// Package iohelper reads HTTP response bodies with size limits so a hostile
// target cannot exhaust memory.
package iohelper

import (
	"io"
	"log/slog"
)

// Body size limits
const (
	// PageMaxBodySize caps crawled pages and probe responses (2MB)
	PageMaxBodySize int64 = 2 * 1024 * 1024

	// DrainLimit caps how much is discarded before closing (64KB)
	DrainLimit int64 = 64 * 1024
)

// ReadBody reads from r with a size limit.
// If r is nil, returns an empty slice and no error.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadPage reads a crawled page with PageMaxBodySize.
func ReadPage(r io.Reader) ([]byte, error) {
	return ReadBody(r, PageMaxBodySize)
}

// DrainAndClose discards what is left of r and closes it if it is a
// ReadCloser, so the connection can be reused. Always returns nil so it
// can be deferred.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, DrainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}

// CloseOrLog closes c and logs a failure at debug level.
func CloseOrLog(c io.Closer, logger *slog.Logger, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && logger != nil {
		logger.Debug("close failed", slog.String("what", what), slog.String("error", err.Error()))
	}
}
