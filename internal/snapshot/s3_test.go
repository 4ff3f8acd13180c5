package snapshot

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 records PutObject calls.
type fakeS3 struct {
	puts []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestS3DestinationWrite(t *testing.T) {
	src := seedLedger(t)
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), src, DefaultChains, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "backups", key: "agora/snapshot.jsonl"}
	if err := dest.Write(context.Background(), buf.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}

	if len(fake.puts) != 1 {
		t.Fatalf("got %d puts, want 1", len(fake.puts))
	}
	put := fake.puts[0]
	if *put.Bucket != "backups" || *put.Key != "agora/snapshot.jsonl" {
		t.Errorf("put to %s/%s, want backups/agora/snapshot.jsonl", *put.Bucket, *put.Key)
	}
	if *put.ContentType != "application/x-ndjson" {
		t.Errorf("content type = %q", *put.ContentType)
	}

	body, err := io.ReadAll(put.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(body, buf.Bytes()) {
		t.Error("uploaded body differs from the export")
	}

	// seedLedger writes 2 user revisions + 1 offer.
	if got := put.Metadata["record-count"]; got != "3" {
		t.Errorf("record-count metadata = %q, want %q", got, "3")
	}
	if got := put.Metadata["snapshot-version"]; got != "1" {
		t.Errorf("snapshot-version metadata = %q, want %q", got, "1")
	}
	exportedAt, err := time.Parse(time.RFC3339, put.Metadata["exported-at"])
	if err != nil {
		t.Fatalf("exported-at metadata %q: %v", put.Metadata["exported-at"], err)
	}
	if time.Since(exportedAt) > time.Minute {
		t.Errorf("exported-at %s is not recent", exportedAt)
	}
}

func TestS3DestinationRefusesNonSnapshot(t *testing.T) {
	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "backups", key: "k"}

	for name, payload := range map[string][]byte{
		"garbage":     []byte("not json\n"),
		"wrong type":  []byte(`{"type":"record"}` + "\n"),
		"empty input": nil,
	} {
		if err := dest.Write(context.Background(), payload); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if len(fake.puts) != 0 {
		t.Fatalf("got %d puts, want 0", len(fake.puts))
	}
}
