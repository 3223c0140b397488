package cursor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/rs/zerolog"
)

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the cursor in a single S3 object. Multiple cooperating
// runners may share it; writes are last-writer-wins with no conflict
// resolution.
type S3Store struct {
	client s3API
	bucket string
	key    string
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed cursor store using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, bucket, key string) (*S3Store, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("cursor bucket and key are required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, key), nil
}

// NewS3StoreWithClient creates a store with an injected client (for testing).
func NewS3StoreWithClient(client s3API, bucket, key string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		key:    key,
		logger: logging.NewLogger("cursor-s3"),
	}
}

// Load reads the cursor object. A missing object means no prior run.
func (s *S3Store) Load(ctx context.Context) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return 0, nil
		}
		return 0, fmt.Errorf("get cursor object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return 0, fmt.Errorf("read cursor object: %w", err)
	}

	value, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return value, nil
}

// Save overwrites the cursor object.
func (s *S3Store) Save(ctx context.Context, value int64) error {
	body := strconv.FormatInt(value, 10)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("put cursor object: %w", err)
	}

	s.logger.Debug().
		Int64("cursor", value).
		Str("bucket", s.bucket).
		Str("key", s.key).
		Msg("Cursor saved")
	return nil
}
