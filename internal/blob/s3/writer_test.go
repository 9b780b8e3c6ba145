package s3blob

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestClampPartSize(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{0, minPartSize},
		{1024, minPartSize},
		{minPartSize, minPartSize},
		{16 << 20, 16 << 20},
	}
	for _, tt := range tests {
		if got := clampPartSize(tt.in); got != tt.want {
			t.Errorf("clampPartSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriterObjectInput(t *testing.T) {
	w := &Writer{bucket: "sharpline-reports"}
	in := w.object("reports/2026/03/08/scan.jsonl", strings.NewReader("{}"), jsonlContentType)

	if aws.ToString(in.Bucket) != "sharpline-reports" || aws.ToString(in.Key) != "reports/2026/03/08/scan.jsonl" {
		t.Fatalf("bucket/key = %s/%s", aws.ToString(in.Bucket), aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != "application/x-ndjson" {
		t.Errorf("content type = %s", aws.ToString(in.ContentType))
	}
}
