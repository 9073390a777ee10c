package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/engine"
	"github.com/knowledge-engine/docsearch/internal/metrics"
	"github.com/knowledge-engine/docsearch/internal/search"
	"github.com/knowledge-engine/docsearch/internal/storage"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc1.txt"), []byte("the cat sat"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "doc2.html"), []byte("<p>the dog sat</p>"), 0644))
	return dir
}

func TestIndexThenSearch(t *testing.T) {
	corpus := writeCorpus(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	_, stderr, err := run(t, "index", corpus, "--output", indexPath, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Saved index of 2 documents")

	tfi, err := storage.NewFileStorage(indexPath).Load()
	require.NoError(t, err)
	assert.Equal(t, search.TermFreqIndex{
		filepath.Join(corpus, "doc1.txt"):         {"THE": 1, "CAT": 1, "SAT": 1},
		filepath.Join(corpus, "sub", "doc2.html"): {"THE": 1, "DOG": 1, "SAT": 1},
	}, tfi)

	stdout, _, err := run(t, "search", indexPath, "cat")
	require.NoError(t, err)

	var results []search.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(corpus, "doc1.txt"), results[0].Path)
	assert.InDelta(t, 0.10034, results[0].Score, 1e-4)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestSearch_TextFormat(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, storage.NewFileStorage(indexPath).Save(search.TermFreqIndex{
		"a.txt": {"CAT": 1, "SAT": 2},
		"b.txt": {"DOG": 1},
	}))

	stdout, _, err := run(t, "search", indexPath, "the", "cat", "--format", "text")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "a.txt\t0.100343", lines[0])
	assert.Equal(t, "b.txt\t0.000000", lines[1])
}

func TestSearch_Errors(t *testing.T) {
	_, _, err := run(t, "search", filepath.Join(t.TempDir(), "missing.json"), "cat")
	var deserErr *storage.DeserializationError
	assert.True(t, errors.As(err, &deserErr))

	_, _, err = run(t, "search", "index.json")
	assert.Error(t, err, "query is required")

	indexPath := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, storage.NewFileStorage(indexPath).Save(search.TermFreqIndex{}))
	_, _, err = run(t, "search", indexPath, "cat", "--format", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(index search.TermFreqIndex) error {
	return m.Called(index).Error(0)
}

func (m *MockStorage) Load() (search.TermFreqIndex, error) {
	args := m.Called()
	return args.Get(0).(search.TermFreqIndex), args.Error(1)
}

func TestRunIndex_RecordsMetrics(t *testing.T) {
	corpus := writeCorpus(t)
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "bad.txt"), []byte{0xff, 0xfe}, 0644))

	store := new(MockStorage)
	store.On("Save", mock.AnythingOfType("search.TermFreqIndex")).Return(nil)

	m := metrics.New(prometheus.NewRegistry())
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	stats, err := runIndex(context.Background(), config.Default(), corpus, store, logrus.NewEntry(logger), m)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DocumentsIndexed)
	assert.Equal(t, int64(1), stats.DocumentsSkipped)
	store.AssertExpectations(t)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "docsearch_documents_indexed_total 2")
	assert.Contains(t, rr.Body.String(), "docsearch_documents_skipped_total 1")
}

func TestRunIndex_SaveFailure(t *testing.T) {
	saveErr := &storage.SerializationError{Path: "index.json", Err: errors.New("disk full")}
	store := new(MockStorage)
	store.On("Save", mock.Anything).Return(saveErr)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	_, err := runIndex(context.Background(), config.Default(), writeCorpus(t), store, logrus.NewEntry(logger), nil)
	assert.ErrorIs(t, err, saveErr)
}

func TestIndex_MissingFolder(t *testing.T) {
	_, _, err := run(t, "index", filepath.Join(t.TempDir(), "nope"), "--output", filepath.Join(t.TempDir(), "i.json"))

	var traversalErr *engine.TraversalError
	assert.True(t, errors.As(err, &traversalErr))
}

func TestRunServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := config.Default()
	cfg.Server.Address = addr
	cfg.Search.CacheSize = 4

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	idx := search.NewIndex(search.TermFreqIndex{
		"doc1": search.CountTerms("the cat sat"),
		"doc2": search.CountTerms("the dog sat"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, cfg, idx, logrus.NewEntry(logger)) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Post("http://"+addr+"/api/search", "text/plain", strings.NewReader("cat"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	var results []search.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	resp.Body.Close()
	require.Len(t, results, 2)
	assert.Equal(t, "doc1", results[0].Path)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
