package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ghcatalog/extractor/internal/testutil"
	"github.com/ghcatalog/extractor/pkg/cache"
	"github.com/ghcatalog/extractor/pkg/cursor"
	"github.com/ghcatalog/extractor/pkg/extract"
	"github.com/ghcatalog/extractor/pkg/github"
	"github.com/ghcatalog/extractor/pkg/quota"
	"github.com/ghcatalog/extractor/pkg/record"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// captureSink records uploads in memory.
type captureSink struct {
	uploads [][]record.Flattened
	reports []*extract.Report
}

func (s *captureSink) Upload(ctx context.Context, valid []record.Flattened, report *extract.Report) (string, error) {
	s.uploads = append(s.uploads, valid)
	s.reports = append(s.reports, report)
	return "s3://artifacts/integration.json", nil
}

var requiredFields = []string{"id", "name", "full_name", "owner", "stargazers_count", "language"}

func scriptedRepos() []testutil.MockRepo {
	return []testutil.MockRepo{
		{ID: 1, Name: "alpha", Owner: "octo", Language: "Go", Stars: 10},
		{ID: 2, Name: "beta", Owner: "octo", Language: "Go", Stars: 20},
		{ID: 3, Name: "gamma", Owner: "hubot", Language: "Rust", Stars: 5},
		{ID: 4, Name: "delta", Owner: "hubot", Language: "Rust", Stars: 7, Deleted: true},
		{ID: 5, Name: "epsilon", Owner: "octo", Language: "Python", Stars: 1},
	}
}

func newExtractor(t *testing.T, mock *testutil.MockGitHub, store cache.Store, cursorStore cursor.Store, s extract.Sink, ceiling int) (*extract.Extractor, *quota.Budget) {
	t.Helper()

	budget := quota.NewBudget(ceiling, zerolog.Nop())

	clientCfg := github.DefaultConfig(budget)
	clientCfg.BaseURL = mock.URL()
	clientCfg.Cache = store
	client, err := github.New(clientCfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	e, err := extract.New(extract.Config{
		Pipeline:       "github-repos",
		Client:         client,
		Budget:         budget,
		Cursor:         cursorStore,
		Sink:           s,
		PageSize:       100,
		RequiredFields: requiredFields,
	})
	if err != nil {
		t.Fatalf("Failed to create extractor: %v", err)
	}
	return e, budget
}

// TestFullRunFlow runs the complete pipeline against the mock API with a
// Redis-backed response cache: cursor load, list, details, validation,
// upload, cursor advance.
func TestFullRunFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetRepos(scriptedRepos())

	cursorStore, err := cursor.NewFileStore(filepath.Join(t.TempDir(), "cursor"))
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	s := &captureSink{}
	e, budget := newExtractor(t, mock, cache.NewRedisStore(redisClient), cursorStore, s, 60)

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 1 list + 5 details (the deleted one still costs a call).
	if report.APICalls != 6 {
		t.Errorf("APICalls = %d, want 6", report.APICalls)
	}
	if report.ValidCount != 4 {
		t.Errorf("ValidCount = %d, want 4", report.ValidCount)
	}
	if report.FailedCount != 1 {
		t.Errorf("FailedCount = %d, want 1 (deleted repo)", report.FailedCount)
	}
	if report.EndCursor != 5 {
		t.Errorf("EndCursor = %d, want 5", report.EndCursor)
	}

	saved, err := cursorStore.Load(context.Background())
	if err != nil {
		t.Fatalf("Cursor load failed: %v", err)
	}
	if saved != 5 {
		t.Errorf("Saved cursor = %d, want 5", saved)
	}

	if len(s.uploads) != 1 || len(s.uploads[0]) != 4 {
		t.Fatalf("Uploads = %v, want one batch of 4", s.uploads)
	}
	if s.uploads[0][0]["owner_login"] != "octo" {
		t.Error("Uploaded records should carry flattened owner fields")
	}
	if s.reports[0].Statistics.TotalRepositories != 4 {
		t.Errorf("Statistics total = %d, want 4", s.reports[0].Statistics.TotalRepositories)
	}

	if budget.Used() != 6 {
		t.Errorf("Budget used = %d, want 6", budget.Used())
	}
}

// TestRerunIsFullyCached verifies that a second run over the same window
// replays from the cache and issues zero API calls.
func TestRerunIsFullyCached(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	repos := []testutil.MockRepo{
		{ID: 1, Name: "alpha", Owner: "octo", Language: "Go", Stars: 10},
		{ID: 2, Name: "beta", Owner: "octo", Language: "Go", Stars: 20},
	}
	mock.SetRepos(repos)

	store := cache.NewRedisStore(redisClient)

	cursorStore, err := cursor.NewFileStore(filepath.Join(t.TempDir(), "cursor"))
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	e1, _ := newExtractor(t, mock, store, cursorStore, &captureSink{}, 60)
	if _, err := e1.Run(context.Background()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	firstCount := mock.GetRequestCount()
	if firstCount != 3 {
		t.Errorf("First run requests = %d, want 3", firstCount)
	}

	// Rewind the cursor so the second run covers the same window.
	if err := cursorStore.Save(context.Background(), 0); err != nil {
		t.Fatalf("Cursor rewind failed: %v", err)
	}

	e2, budget2 := newExtractor(t, mock, store, cursorStore, &captureSink{}, 60)
	report2, err := e2.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if mock.GetRequestCount() != firstCount {
		t.Errorf("Second run issued %d new requests, want 0", mock.GetRequestCount()-firstCount)
	}
	if report2.APICalls != 0 {
		t.Errorf("Second run APICalls = %d, want 0", report2.APICalls)
	}
	if report2.CacheHits != 2 {
		t.Errorf("Second run CacheHits = %d, want 2", report2.CacheHits)
	}
	if budget2.Used() != 0 {
		t.Errorf("Second run budget used = %d, want 0", budget2.Used())
	}
}

// TestBudgetBoundsRunAndResume verifies that a run stops at the ceiling and
// the next run resumes exactly where the first stopped.
func TestBudgetBoundsRunAndResume(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()

	var repos []testutil.MockRepo
	for i := int64(1); i <= 10; i++ {
		repos = append(repos, testutil.MockRepo{
			ID: i, Name: names[i-1], Owner: "octo", Language: "Go", Stars: int(i),
		})
	}
	mock.SetRepos(repos)

	cursorStore, err := cursor.NewFileStore(filepath.Join(t.TempDir(), "cursor"))
	if err != nil {
		t.Fatalf("Failed to create cursor store: %v", err)
	}

	// Ceiling 4: one list call plus three details.
	e1, _ := newExtractor(t, mock, cache.NewRedisStore(redisClient), cursorStore, &captureSink{}, 4)
	report1, err := e1.Run(context.Background())
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	if report1.APICalls > 4 {
		t.Errorf("APICalls = %d, ceiling 4 exceeded", report1.APICalls)
	}
	if report1.EndCursor != 3 {
		t.Errorf("EndCursor = %d, want 3", report1.EndCursor)
	}

	// Second run lists from the saved cursor. A fresh budget is enough to
	// finish the remaining candidates.
	e2, _ := newExtractor(t, mock, cache.NewRedisStore(redisClient), cursorStore, &captureSink{}, 60)
	report2, err := e2.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	sinces := mock.GetListSinceValues()
	if len(sinces) != 2 || sinces[1] != 3 {
		t.Errorf("List since values = %v, want second run since=3", sinces)
	}
	if report2.EndCursor != 10 {
		t.Errorf("Second run EndCursor = %d, want 10", report2.EndCursor)
	}
}

var names = []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
