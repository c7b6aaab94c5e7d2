package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/metrics"
)

// s3API is the subset of the S3 client used by S3Storage.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Storage keeps uploads as "<kind>/<name>" objects in a bucket.
type S3Storage struct {
	client  s3API
	bucket  string
	baseURL string
	now     func() time.Time
}

var _ Storage = (*S3Storage)(nil)

// NewS3Storage builds an S3 client from static credentials. A custom
// endpoint enables MinIO and other S3-compatible stores.
func NewS3Storage(ctx context.Context, cfg appconfig.S3) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required for the s3 upload backend")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = URLPrefix
	}
	return newS3Storage(client, cfg.Bucket, baseURL), nil
}

func newS3Storage(client s3API, bucket, baseURL string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, baseURL: baseURL, now: time.Now}
}

func objectKey(kind Kind, name string) string {
	return string(kind) + "/" + name
}

func (s *S3Storage) Save(ctx context.Context, kind Kind, original string, r io.Reader) (string, error) {
	if !validKind(kind) {
		return "", fmt.Errorf("unknown upload kind %q", kind)
	}
	ext, err := Extension(original)
	if err != nil {
		return "", err
	}

	// Buffer the body so the SDK can sign a seekable payload.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	name := GenerateName(kind, ext, s.now())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(kind, name)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(ContentType(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	metrics.UploadsStoredTotal.WithLabelValues(string(kind)).Inc()
	return BuildURL(s.baseURL, kind, name), nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, url string) error {
	kind, name, err := ParseURL(url)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(kind, name)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *S3Storage) List(ctx context.Context, kind Kind) ([]File, error) {
	prefix := string(kind) + "/"
	var files []File
	var token *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			created, ok := NameTime(name)
			if !ok {
				created = aws.ToTime(obj.LastModified)
			}
			files = append(files, File{
				Kind:      kind,
				Name:      name,
				URL:       BuildURL(s.baseURL, kind, name),
				CreatedAt: created,
			})
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return files, nil
		}
		token = out.NextContinuationToken
	}
}
