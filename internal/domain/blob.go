package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// ReportArchiver writes finished scan reports to cold storage and returns
// the object path.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report *ScanReport) (string, error)
}
