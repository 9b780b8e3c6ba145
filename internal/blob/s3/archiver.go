package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/sharpline/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// Existence is the optional check the archiver makes before uploading.
type Existence interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver implements domain.ReportArchiver. Each report becomes one JSONL
// object: a run line followed by one line per finding.
type Archiver struct {
	writer    domain.BlobWriter
	exists    Existence
	prefix    string
	multipart int64
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithPrefix sets the key prefix (default "reports").
func WithPrefix(prefix string) ArchiverOption {
	return func(a *Archiver) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithExistenceCheck skips uploads for reports already archived.
func WithExistenceCheck(e Existence) ArchiverOption {
	return func(a *Archiver) { a.exists = e }
}

// WithMultipartThreshold switches to multipart upload above n bytes.
func WithMultipartThreshold(n int64) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.multipart = n
		}
	}
}

// NewArchiver creates an Archiver writing through w.
func NewArchiver(w domain.BlobWriter, opts ...ArchiverOption) *Archiver {
	a := &Archiver{writer: w, prefix: "reports", multipart: minPartSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type archiveLine struct {
	Kind      string                       `json:"kind"`
	ScanID    string                       `json:"scan_id"`
	Run       *domain.ScanRun              `json:"run,omitempty"`
	ValueBet  *domain.PositiveEVBet        `json:"value_bet,omitempty"`
	Arbitrage *domain.ArbitrageCombination `json:"arbitrage,omitempty"`
}

// ArchiveReport uploads report to <prefix>/YYYY/MM/DD/<scan_id>.jsonl and
// returns the key.
func (a *Archiver) ArchiveReport(ctx context.Context, report *domain.ScanReport) (string, error) {
	path := ArchivePath(a.prefix, report.StartedAt, report.ID)

	if a.exists != nil {
		ok, err := a.exists.Exists(ctx, path)
		if err != nil {
			return "", fmt.Errorf("s3blob: archive %s: %w", report.ID, err)
		}
		if ok {
			return path, nil
		}
	}

	buf, err := marshalReport(report)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s: %w", report.ID, err)
	}

	if int64(len(buf)) > a.multipart {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), a.multipart)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s: %w", report.ID, err)
	}
	return path, nil
}

// ArchivePath builds the object key for a scan started at t.
func ArchivePath(prefix string, t time.Time, scanID string) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", prefix, t.UTC().Format("2006/01/02"), scanID)
}

func marshalReport(report *domain.ScanReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	run := report.Summary()
	if err := enc.Encode(archiveLine{Kind: "run", ScanID: report.ID, Run: &run}); err != nil {
		return nil, fmt.Errorf("jsonl encode run: %w", err)
	}
	for _, res := range report.Results {
		for i := range res.ValueBets {
			if err := enc.Encode(archiveLine{Kind: "positive_ev", ScanID: report.ID, ValueBet: &res.ValueBets[i]}); err != nil {
				return nil, fmt.Errorf("jsonl encode value bet: %w", err)
			}
		}
		for i := range res.Arbs {
			if err := enc.Encode(archiveLine{Kind: "arbitrage", ScanID: report.ID, Arbitrage: &res.Arbs[i]}); err != nil {
				return nil, fmt.Errorf("jsonl encode arbitrage: %w", err)
			}
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.ReportArchiver = (*Archiver)(nil)
