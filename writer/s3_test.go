package writer

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tradescanner/logger"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.key, f.contentType = *in.Bucket, *in.Key, *in.ContentType
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	u := NewS3UploaderWithClient(&fakeS3{}, "scans", "market/snapshots/", logger.Discard())

	if got := u.ObjectKey(exportTime, "abc", CSV); got != "market/snapshots/2024/03/01/abc.csv" {
		t.Fatalf("unexpected key %q", got)
	}

	generated := u.ObjectKey(exportTime, "", JSON)
	if !regexp.MustCompile(`^market/snapshots/2024/03/01/[0-9a-f-]{36}\.json$`).MatchString(generated) {
		t.Fatalf("unexpected generated key %q", generated)
	}

	bare := NewS3UploaderWithClient(&fakeS3{}, "scans", "", logger.Discard())
	if got := bare.ObjectKey(exportTime, "id", JSON); got != "2024/03/01/id.json" {
		t.Fatalf("unexpected key without prefix %q", got)
	}
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	u := NewS3UploaderWithClient(fake, "scans", "", logger.Discard())

	uri, err := u.Upload(context.Background(), "2024/03/01/id.json", []byte(`{"ok":true}`), JSON.ContentType())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uri != "s3://scans/2024/03/01/id.json" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if fake.bucket != "scans" || fake.contentType != "application/json" || string(fake.body) != `{"ok":true}` {
		t.Fatalf("unexpected put: %+v", fake)
	}

	fake.err = errors.New("access denied")
	if _, err := u.Upload(context.Background(), "k", nil, "text/csv"); err == nil {
		t.Fatal("expected upload error")
	}
}
