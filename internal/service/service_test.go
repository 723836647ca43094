package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/dialogbot/internal/classify"
	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/embedding"
	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/render"
	"github.com/timmy/dialogbot/internal/repository"
	"github.com/timmy/dialogbot/internal/similarity"
	"github.com/timmy/dialogbot/internal/storage"
	"github.com/timmy/dialogbot/internal/vecmath"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))
	return db
}

// tableEncoder maps known texts to fixed vectors.
type tableEncoder struct {
	vectors map[string]vecmath.Vector
	dims    int
}

func (e *tableEncoder) Encode(_ context.Context, text string) (vecmath.Vector, error) {
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}
func (e *tableEncoder) Dimensions() int { return e.dims }
func (e *tableEncoder) Model() string   { return "table" }

type staticClassifier struct{ result classify.Result }

func (c staticClassifier) Classify(context.Context, string) classify.Result { return c.result }

type recordingMirror struct{ ids []uint }

func (m *recordingMirror) Upsert(_ context.Context, _ []float32, p *repository.ConversationPayload) error {
	m.ids = append(m.ids, p.ConversationID)
	return nil
}

type stubGenerator struct{}

func (stubGenerator) Explain(_ context.Context, a, b string) (string, error) {
	return a + "/" + b, nil
}

func scenarioEmbedder() *embedding.Embedder {
	return embedding.NewEmbedder(&tableEncoder{dims: 3, vectors: map[string]vecmath.Vector{
		"first":  {1, 0, 0},
		"second": {0, 1, 0},
		"third":  {0.9, 0.1, 0},
		"query":  {1, 0, 0},
	}}, 0)
}

func createMessages(t *testing.T, svc *ConversationService, msgs ...string) {
	t.Helper()
	for _, msg := range msgs {
		_, err := svc.Create(context.Background(), &CreateConversationRequest{User: "u", Message: msg})
		require.NoError(t, err)
	}
}

func TestConversationService_Create(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewConversationRepository(newTestDB(t))
	labels := classify.Labels{Style: "丁寧", Emotion: "ポジティブ", EmotionalIntensity: "普通", Topic: "技術"}
	mirror := &recordingMirror{}
	svc := NewConversationService(repo, scenarioEmbedder(), staticClassifier{classify.Ok(labels)}, mirror, nil)

	view, err := svc.Create(ctx, &CreateConversationRequest{User: "alice", Message: "first"})
	require.NoError(t, err)
	assert.True(t, view.Classified)
	assert.Equal(t, labels, view.Labels)
	assert.True(t, view.HasEmbedding)
	assert.Equal(t, []uint{view.ID}, mirror.ids)

	stored, err := repo.GetByID(ctx, view.ID)
	require.NoError(t, err)
	vec, err := stored.Vector()
	require.NoError(t, err)
	assert.Equal(t, vecmath.Vector{1, 0, 0}, vec)
}

func TestConversationService_CreateFailures(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewConversationRepository(newTestDB(t))
	svc := NewConversationService(repo, scenarioEmbedder(), staticClassifier{classify.Failed("timeout")}, nil, nil)

	_, err := svc.Create(ctx, &CreateConversationRequest{User: "", Message: "first"})
	assert.ErrorIs(t, err, ErrInvalidInput, "missing user")
	_, err = svc.Create(ctx, &CreateConversationRequest{User: "u", Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput, "blank message")

	// the encoder does not know this text: stored without embedding
	view, err := svc.Create(ctx, &CreateConversationRequest{User: "u", Message: "unknown words"})
	require.NoError(t, err)
	assert.False(t, view.HasEmbedding)
	assert.False(t, view.Classified)
	assert.Equal(t, classify.UnknownLabels(), view.Labels)

	stored, err := repo.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Style, "failed classification must store NULL labels")
	assert.Nil(t, stored.Topic, "failed classification must store NULL labels")
}

func TestConversationService_GetAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(repository.NewConversationRepository(newTestDB(t)), scenarioEmbedder(), nil, nil, nil)
	createMessages(t, svc, "first", "second", "third")

	_, err := svc.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	page, err := svc.List(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "second", page[0].Message)

	_, err = svc.List(ctx, -1, 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSimilarService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewConversationRepository(newTestDB(t))
	embedder := scenarioEmbedder()
	createMessages(t, NewConversationService(repo, embedder, nil, nil, nil), "first", "second", "third")

	svc := NewSimilarService(embedder, repo, similarity.NewEngine(stubGenerator{}, nil), 2)
	resp, err := svc.FindSimilar(ctx, &SimilarRequest{Query: "query", ExplainDimensions: true, Explain: true})
	require.NoError(t, err)

	var got []string
	for _, m := range resp.Matches {
		got = append(got, m.Text)
	}
	assert.Equal(t, []string{"first", "third", "second"}, got)
	assert.InDelta(t, 0.994, resp.Matches[1].Score, 0.001)

	dims := resp.Matches[0].TopDimensions
	require.Len(t, dims, 2)
	assert.Equal(t, 0, dims[0])
	assert.Equal(t, "query/first", resp.Matches[0].Explanation)
	assert.Equal(t, "query/second", resp.Matches[2].Explanation)

	_, err = svc.FindSimilar(ctx, &SimilarRequest{Query: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// gatedGenerator answers only once want calls are in flight together.
type gatedGenerator struct {
	want int

	mu      sync.Mutex
	calls   int
	allHere chan struct{}
}

func (g *gatedGenerator) Explain(ctx context.Context, a, b string) (string, error) {
	g.mu.Lock()
	g.calls++
	if g.calls == g.want {
		close(g.allHere)
	}
	g.mu.Unlock()

	select {
	case <-g.allHere:
		return a + "/" + b, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSimilarService_ExplainsMatchesConcurrently(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewConversationRepository(newTestDB(t))
	embedder := scenarioEmbedder()
	createMessages(t, NewConversationService(repo, embedder, nil, nil, nil), "first", "second", "third")

	gen := &gatedGenerator{want: 3, allHere: make(chan struct{})}
	engine := similarity.NewEngine(gen, &similarity.Config{ExplainTimeout: 2 * time.Second})
	svc := NewSimilarService(embedder, repo, engine, 0)

	start := time.Now()
	resp, err := svc.FindSimilar(ctx, &SimilarRequest{Query: "query", Explain: true})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, resp.Matches, 3)
	for _, m := range resp.Matches {
		assert.Equal(t, "query/"+m.Text, m.Explanation)
	}
}

func TestMonitorService_RecordsHistory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := repository.NewConversationRepository(db)
	createMessages(t, NewConversationService(repo, scenarioEmbedder(), nil, nil, nil), "first")

	svc := NewMonitorService(drift.NewDetector(repo, drift.NewMemoryStore()), repository.NewDriftCheckRepository(db), 0)
	first, err := svc.CheckDrift(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DriftStatusInitialized, first.Status)
	assert.Equal(t, drift.DefaultThreshold, first.Threshold)

	second, err := svc.CheckDrift(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DriftStatusStable, second.Status)

	bad := 2.0
	_, err = svc.CheckDrift(ctx, &bad)
	assert.ErrorIs(t, err, drift.ErrInvalidThreshold)

	checks, err := svc.ListChecks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, checks, 3)
	var errored int
	for _, c := range checks {
		if c.Status == domain.DriftStatusError {
			errored++
		}
	}
	assert.Equal(t, 1, errored)
}

func TestVisualizationService_RenderAndRetrain(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewConversationRepository(newTestDB(t))
	conv := NewConversationService(repo, scenarioEmbedder(), nil, nil, nil)

	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	svc, err := NewVisualizationService(repo, render.NewPNGSink(store, nil), store, nil)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Render(ctx, reduce.MethodPCA)
	assert.ErrorIs(t, err, reduce.ErrEmptyCorpus)
	_, err = svc.Open(ctx, reduce.MethodPCA)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Render(ctx, "bogus")
	assert.ErrorIs(t, err, reduce.ErrInvalidMethod)

	createMessages(t, conv, "first", "second", "third")

	job, err := svc.Retrain(ctx)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRunning, job.Status)
	svc.Wait()

	status := svc.Status()
	require.Equal(t, JobStatusCompleted, status.Status)
	require.Len(t, status.Results, 2)
	assert.Equal(t, reduce.MethodTSNE, status.Results[0].Method)
	assert.Equal(t, reduce.MethodPCA, status.Results[1].Method)

	rc, err := svc.Open(ctx, reduce.MethodTSNE)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PNG", string(data[1:4]))
}

type fixedCorpus []domain.CorpusEntry

func (c fixedCorpus) ListCorpus(context.Context) ([]domain.CorpusEntry, error) {
	return c, nil
}

type recordingSink struct {
	points []reduce.Point
}

func (s *recordingSink) Publish(_ context.Context, method reduce.Method, points []reduce.Point) (string, error) {
	s.points = points
	return "mem://" + render.FileName(method), nil
}

func TestVisualizationService_SubsamplesLargeCorpus(t *testing.T) {
	var corpus fixedCorpus
	for i := 0; i < 25; i++ {
		corpus = append(corpus, domain.CorpusEntry{ID: uint(i + 1), Vector: vecmath.Vector{float32(i), float32(i % 5), 1}})
	}
	sink := &recordingSink{}
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	svc, err := NewVisualizationService(corpus, sink, store, &VisualizationConfig{MaxPoints: 10})
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Render(context.Background(), reduce.MethodPCA)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Points)
	assert.Len(t, sink.points, 10)

	// under the cap every vector is reduced
	svc.maxPoints = 100
	res, err = svc.Render(context.Background(), reduce.MethodPCA)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Points)
}

type blockingCorpus struct {
	release chan struct{}
}

func (c *blockingCorpus) ListCorpus(context.Context) ([]domain.CorpusEntry, error) {
	<-c.release
	return nil, nil
}

func TestVisualizationService_RejectsConcurrentRetrain(t *testing.T) {
	corpus := &blockingCorpus{release: make(chan struct{})}
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	svc, err := NewVisualizationService(corpus, render.NewPNGSink(store, nil), store, nil)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Retrain(context.Background())
	require.NoError(t, err)
	_, err = svc.Retrain(context.Background())
	assert.ErrorIs(t, err, ErrRetrainRunning)
	close(corpus.release)
	svc.Wait()

	assert.Equal(t, JobStatusFailed, svc.Status().Status, "empty corpus fails the job")
}
