// Package sink persists the validated batch plus run metadata as one
// immutable, date-partitioned JSON object.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ghcatalog/extractor/pkg/extract"
	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/ghcatalog/extractor/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for artifact uploads.
var (
	ghxUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghx_artifact_uploads_total",
		Help: "Total artifact upload attempts by result",
	}, []string{"result"})

	ghxUploadBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghx_artifact_size_bytes",
		Help: "Size of the last uploaded artifact in bytes",
	})
)

// s3API is the subset of the S3 client the sink uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// artifact is the serialized object layout.
type artifact struct {
	Metadata     *extract.Report    `json:"metadata"`
	Repositories []record.Flattened `json:"repositories"`
}

// Config holds the sink configuration.
type Config struct {
	// Bucket receiving the artifacts (required).
	Bucket string

	// Prefix under which artifacts are keyed.
	Prefix string

	// Pipeline names the artifact files.
	Pipeline string

	// DatePartition adds a yyyy/mm/dd/ path segment derived from the run's
	// start time.
	DatePartition bool
}

// S3Sink writes each batch as a single S3 object. Upload is one call with no
// multipart or resume logic; a failure is reported to the caller and not
// retried here.
type S3Sink struct {
	client s3API
	config Config
	logger zerolog.Logger
}

// NewS3Sink creates a sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("artifact bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewS3SinkWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewS3SinkWithClient creates a sink with an injected client (for testing).
func NewS3SinkWithClient(client s3API, cfg Config) *S3Sink {
	if cfg.Pipeline == "" {
		cfg.Pipeline = "github-repos"
	}
	return &S3Sink{
		client: client,
		config: cfg,
		logger: logging.NewLogger("artifact-sink"),
	}
}

// Upload serializes {metadata, repositories} and writes it as one object.
// It returns the object location on success.
func (s *S3Sink) Upload(ctx context.Context, valid []record.Flattened, report *extract.Report) (string, error) {
	data, err := json.Marshal(artifact{
		Metadata:     report,
		Repositories: valid,
	})
	if err != nil {
		ghxUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("serialize artifact: %w", err)
	}

	key := s.objectKey(report)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		ghxUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("put artifact object: %w", err)
	}

	ghxUploadsTotal.WithLabelValues("success").Inc()
	ghxUploadBytes.Set(float64(len(data)))

	location := fmt.Sprintf("s3://%s/%s", s.config.Bucket, key)
	s.logger.Info().
		Str("location", location).
		Int("records", len(valid)).
		Int("size_bytes", len(data)).
		Msg("Artifact uploaded")
	return location, nil
}

// objectKey builds {prefix/}{yyyy/mm/dd/}{pipeline}_{timestamp}.json from
// the run's start time.
func (s *S3Sink) objectKey(report *extract.Report) string {
	key := ""
	if s.config.Prefix != "" {
		key = s.config.Prefix + "/"
	}
	if s.config.DatePartition {
		key += report.StartedAt.Format("2006/01/02") + "/"
	}
	key += fmt.Sprintf("%s_%s.json", s.config.Pipeline, report.StartedAt.Format("20060102_150405"))
	return key
}
