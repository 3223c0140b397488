package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ghcatalog/extractor/pkg/extract"
	"github.com/ghcatalog/extractor/pkg/record"
)

type fakeS3 struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, *params.Key)
	f.bodies = append(f.bodies, data)
	return &s3.PutObjectOutput{}, nil
}

func testReport() *extract.Report {
	return &extract.Report{
		Pipeline:   "github-repos",
		EndCursor:  42,
		ValidCount: 1,
		StartedAt:  time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC),
	}
}

func TestUpload_ArtifactLayout(t *testing.T) {
	fake := &fakeS3{}
	sink := NewS3SinkWithClient(fake, Config{Bucket: "artifacts", Prefix: "github"})

	valid := []record.Flattened{{"id": float64(1), "owner_login": "octo"}}
	location, err := sink.Upload(context.Background(), valid, testReport())
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	wantKey := "github/github-repos_20260830_123456.json"
	if len(fake.keys) != 1 || fake.keys[0] != wantKey {
		t.Errorf("Object key = %v, want %q", fake.keys, wantKey)
	}
	if location != "s3://artifacts/"+wantKey {
		t.Errorf("Location = %q, want s3://artifacts/%s", location, wantKey)
	}

	var got struct {
		Metadata     *extract.Report    `json:"metadata"`
		Repositories []record.Flattened `json:"repositories"`
	}
	if err := json.Unmarshal(fake.bodies[0], &got); err != nil {
		t.Fatalf("Artifact is not valid JSON: %v", err)
	}
	if got.Metadata.EndCursor != 42 {
		t.Errorf("Metadata end cursor = %d, want 42", got.Metadata.EndCursor)
	}
	if len(got.Repositories) != 1 || got.Repositories[0]["owner_login"] != "octo" {
		t.Errorf("Repositories = %v, want the flattened batch", got.Repositories)
	}
}

func TestUpload_DatePartitionedKey(t *testing.T) {
	fake := &fakeS3{}
	sink := NewS3SinkWithClient(fake, Config{Bucket: "artifacts", DatePartition: true})

	if _, err := sink.Upload(context.Background(), nil, testReport()); err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	wantKey := "2026/08/30/github-repos_20260830_123456.json"
	if fake.keys[0] != wantKey {
		t.Errorf("Object key = %q, want %q", fake.keys[0], wantKey)
	}
}

func TestUpload_FailureSurfaced(t *testing.T) {
	sink := NewS3SinkWithClient(&fakeS3{err: errors.New("access denied")}, Config{Bucket: "artifacts"})

	if _, err := sink.Upload(context.Background(), nil, testReport()); err == nil {
		t.Error("Upload() should surface the backend failure")
	}
}
