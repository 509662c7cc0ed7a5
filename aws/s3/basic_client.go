package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func NewBasicClient(bucket, region, prefix string) BasicClient {
	awsConfig := aws.NewConfig()
	awsConfig.Region = aws.String(region)
	sess := session.Must(session.NewSession(awsConfig))
	return NewBasicClientWithAPI(bucket, prefix, s3.New(sess))
}

func NewBasicClientWithAPI(bucket, prefix string, api s3iface.S3API) BasicClient {
	return &basicClient{
		bucket: bucket,
		prefix: prefix,
		api:    api,
	}
}

type basicClient struct {
	bucket string
	prefix string
	api    s3iface.S3API
}

// List returns all keys under key, relative to the bucket root.
func (s *basicClient) List(ctx context.Context, key string) (keys []string, err error) {
	keys = make([]string, 0, 1000)
	lastKey := ""
	for {
		params := &s3.ListObjectsInput{
			Bucket:  aws.String(s.bucket),
			Marker:  aws.String(lastKey),
			MaxKeys: aws.Int64(1000),
			Prefix:  aws.String(s.getKeyWithPrefix(key)),
		}
		resp, err := s.api.ListObjectsWithContext(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Contents {
			keys = append(keys, *v.Key)
		}
		if len(keys) > 0 {
			lastKey = keys[len(keys)-1]
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
	}
	return
}

func (s *basicClient) BufferPut(ctx context.Context, key string, dataBuf io.ReadSeeker) error {
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
		Body:   dataBuf,
	})
	return err
}

func (s *basicClient) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
	})
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
		return ErrKeyNotFound
	}
	return err
}

func (s *basicClient) URL(key string) string {
	return fmt.Sprintf("s3://%v/%v", s.bucket, s.getKeyWithPrefix(key))
}

func (s *basicClient) getKeyWithPrefix(key string) string {
	if s.prefix != "" {
		return strings.TrimRight(s.prefix, "/") + "/" + key // ensure trailing slash after prefix.
	}
	return key
}
