package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/relloyd/obspipe/logger"
)

type fakePutter struct {
	bucket string
	name   string
	body   []byte
	opts   minio.PutObjectOptions
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.bucket, f.name, f.opts = bucketName, objectName, opts
	f.body, _ = ioutil.ReadAll(reader)
	return minio.UploadInfo{}, f.err
}

func TestMinioArchivePut(t *testing.T) {
	log := logger.NewLogger("obspipe", "info", true)
	f := &fakePutter{}
	a := newMinioArchiveWithClient(log, f, "raw", "jcr")
	raw := []byte(`{"observation_summary":[]}`)
	if err := a.Put(context.Background(), "summary/x", raw, map[string]string{"run_id": "r1"}); err != nil {
		t.Fatal(err)
	}
	if f.bucket != "raw" || f.name != "jcr/summary/x.json.gz" {
		t.Fatalf("unexpected object %v/%v", f.bucket, f.name)
	}
	if f.opts.ContentEncoding != "gzip" {
		t.Fatalf("unexpected content encoding %v", f.opts.ContentEncoding)
	}
	gz, err := gzip.NewReader(bytes.NewReader(f.body))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := ioutil.ReadAll(gz)
	if string(got) != string(raw) {
		t.Fatalf("expected %s; got %s", raw, got)
	}
	f.err = errors.New("boom")
	if err := a.Put(context.Background(), "k", raw, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestKeys(t *testing.T) {
	ts := time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC)
	if got := SummaryKey("r1", ts); !strings.HasPrefix(got, "summary/") || !strings.HasSuffix(got, "_r1") {
		t.Fatalf("unexpected summary key %v", got)
	}
	if got := DetailsKey("r1", 2, ts); !strings.HasPrefix(got, "details/") || !strings.HasSuffix(got, "_r1_batch002") {
		t.Fatalf("unexpected details key %v", got)
	}
}
