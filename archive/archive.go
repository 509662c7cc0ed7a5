package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/helper"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/metrics"
)

// Config holds the object store used to archive raw API payloads.
type Config struct {
	Endpoint  string `errorTxt:"archive endpoint host:port" mandatory:"yes" json:"endpoint" yaml:"endpoint"`
	AccessKey string `errorTxt:"archive access key" mandatory:"yes" json:"accessKey" yaml:"accessKey"`
	SecretKey string `errorTxt:"archive secret key" mandatory:"yes" json:"secretKey" yaml:"secretKey"`
	Bucket    string `errorTxt:"archive bucket" mandatory:"yes" json:"bucket" yaml:"bucket"`
	Prefix    string `errorTxt:"archive key prefix" json:"prefix" yaml:"prefix"`
	UseSSL    bool   `json:"useSSL" yaml:"useSSL"`
}

// Archiver stores raw payloads before they are coerced so a run can be replayed or audited.
type Archiver interface {
	Put(ctx context.Context, key string, raw []byte, meta map[string]string) error
}

// objectPutter is the subset of *minio.Client used by the archive.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type MinioArchive struct {
	log    logger.Logger
	client objectPutter
	bucket string
	prefix string
}

// NewMinioArchive connects to the object store and creates the bucket if it does not exist.
func NewMinioArchive(ctx context.Context, log logger.Logger, cfg Config) (*MinioArchive, error) {
	if err := helper.ValidateStructIsPopulated(&cfg); err != nil {
		return nil, err
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating archive client")
	}
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "error checking archive bucket %v", cfg.Bucket)
	}
	if !exists {
		if err = cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "error creating archive bucket %v", cfg.Bucket)
		}
		log.Info("created archive bucket ", cfg.Bucket)
	}
	return newMinioArchiveWithClient(log, cli, cfg.Bucket, cfg.Prefix), nil
}

func newMinioArchiveWithClient(log logger.Logger, client objectPutter, bucket string, prefix string) *MinioArchive {
	return &MinioArchive{log: log, client: client, bucket: bucket, prefix: prefix}
}

// Put gzips raw and writes it as <prefix>/<key>.json.gz.
func (a *MinioArchive) Put(ctx context.Context, key string, raw []byte, meta map[string]string) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		metrics.ArchiveObjectsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return err
	}
	if err := gz.Close(); err != nil {
		metrics.ArchiveObjectsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return err
	}
	objectName := path.Join(a.prefix, key+".json.gz")
	reader := bytes.NewReader(buf.Bytes())
	_, err := a.client.PutObject(ctx, a.bucket, objectName, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType:     constants.RawArchiveContentType,
		ContentEncoding: constants.RawArchiveContentEncoding,
		UserMetadata:    meta,
	})
	if err != nil {
		metrics.ArchiveObjectsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return errors.Wrapf(err, "error archiving %v", objectName)
	}
	metrics.ArchiveObjectsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	a.log.Debug("archived raw payload to ", a.bucket, "/", objectName)
	return nil
}

// SummaryKey returns the archive key of the summary payload for a run.
func SummaryKey(runID string, t time.Time) string {
	return path.Join(constants.RawArchiveSummaryPrefix, helper.FileNameTimestamp(t)+"_"+runID)
}

// DetailsKey returns the archive key of a batch detail payload for a run.
func DetailsKey(runID string, batchIndex int, t time.Time) string {
	return path.Join(constants.RawArchiveDetailsPrefix, fmt.Sprintf("%v_%v_batch%03d", helper.FileNameTimestamp(t), runID, batchIndex))
}

// Nop discards everything. It is used when no archive is configured.
type Nop struct{}

func (Nop) Put(ctx context.Context, key string, raw []byte, meta map[string]string) error {
	return nil
}
