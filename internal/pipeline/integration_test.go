package pipeline_test

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/ledger"
	"github.com/Grabemic/Screenshot-wizard/internal/llm"
	"github.com/Grabemic/Screenshot-wizard/internal/pdf"
	"github.com/Grabemic/Screenshot-wizard/internal/pipeline"
	"github.com/Grabemic/Screenshot-wizard/internal/render"
)

// analysisServer answers every chat completion with body.
func analysisServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(llm.Response{
			ID:      "chatcmpl-it",
			Choices: []llm.Choice{{Message: llm.ChoiceMessage{Role: "assistant", Content: body}, FinishReason: "stop"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type stack struct {
	in, out, archive string
	coord            *pipeline.Coordinator
	store            *ledger.Store
}

func newStack(t *testing.T, baseURL string) *stack {
	t.Helper()
	root := t.TempDir()
	s := &stack{
		in:      filepath.Join(root, "input"),
		out:     filepath.Join(root, "output"),
		archive: filepath.Join(root, "archive"),
	}
	require.NoError(t, os.MkdirAll(s.in, 0o755))

	store, err := ledger.Open(filepath.Join(root, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	s.store = store

	client := llm.NewClient(llm.Config{APIKey: "sk-test", BaseURL: baseURL, Timeout: 10 * time.Second}, nil)
	s.coord = pipeline.New(pipeline.Config{
		OutputDir:     s.out,
		ArchiveDir:    s.archive,
		MaxCategories: 2,
		TempDir:       filepath.Join(root, "tmp"),
	}, client, pdf.NewConverter(72, nil), render.NewWriter(render.DefaultConfig(), nil), nil,
		pipeline.WithHistory(store),
	)
	return s
}

func writeDocument(t *testing.T, path string, pages int) {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(200, 20, "Quarterly report")
	}
	require.NoError(t, doc.OutputFileAndClose(path))
}

func writeScreenshot(t *testing.T, path string) {
	t.Helper()
	img := imaging.New(320, 200, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	img = imaging.Paste(img, imaging.New(100, 50, color.NRGBA{B: 200, A: 255}), image.Pt(20, 20))
	require.NoError(t, imaging.Save(img, path))
}

func readPDF(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"), "%s is not a PDF", path)
	return string(data)
}

func TestIntegration_DocumentPerPage(t *testing.T) {
	srv, calls := analysisServer(t, "```json\n{\"content_type\":\"text\",\"text\":\"Revenue grew\",\"categories\":[\"Finance\",\"Report\",\"Extra\"]}\n```")
	s := newStack(t, srv.URL)

	src := filepath.Join(s.in, "report.pdf")
	writeDocument(t, src, 2)

	require.True(t, s.coord.ProcessOne(context.Background(), src, domain.ProcessingOptions{Mode: domain.ModePerPage}))

	assert.EqualValues(t, 2, calls.Load())
	readPDF(t, filepath.Join(s.out, "report_page_1.pdf"))
	readPDF(t, filepath.Join(s.out, "report_page_2.pdf"))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.archive, "report.pdf"))
	assert.NoError(t, err)

	runs, err := s.store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Success)
	assert.Len(t, runs[0].Outputs, 2)
}

func TestIntegration_GraphicScreenshot(t *testing.T) {
	srv, _ := analysisServer(t, `{"content_type":"graphic","description":"A blue box","categories":["Diagram"]}`)
	s := newStack(t, srv.URL)

	src := filepath.Join(s.in, "diagram.png")
	writeScreenshot(t, src)

	require.True(t, s.coord.ProcessOne(context.Background(), src, domain.ProcessingOptions{Thumbnail: domain.ThumbnailSmall}))

	body := readPDF(t, filepath.Join(s.out, "diagram.pdf"))
	assert.Contains(t, body, "/Subtype /Image", "thumbnail embedded")
	_, err := os.Stat(filepath.Join(s.archive, "diagram.png"))
	assert.NoError(t, err)
}

func TestIntegration_ServiceDownKeepsInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	s := newStack(t, srv.URL)

	src := filepath.Join(s.in, "shot.png")
	writeScreenshot(t, src)

	assert.False(t, s.coord.ProcessOne(context.Background(), src, domain.DefaultProcessingOptions()))

	_, err := os.Stat(src)
	assert.NoError(t, err, "failed input stays for retry")
	entries, _ := os.ReadDir(s.out)
	assert.Empty(t, entries)
}

// TestIntegration_LiveService sends a real screenshot to the configured
// service. It needs OPENAI_API_KEY and SW_SAMPLE_IMAGE.
func TestIntegration_LiveService(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	sample := os.Getenv("SW_SAMPLE_IMAGE")
	if apiKey == "" || sample == "" {
		t.Skip("OPENAI_API_KEY or SW_SAMPLE_IMAGE not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := llm.NewClient(llm.Config{APIKey: apiKey, BaseURL: os.Getenv("OPENAI_BASE_URL")}, nil)
	outcome, err := client.AnalyzeFile(ctx, sample, domain.DefaultProcessingOptions(), 2)
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.Categories)
	assert.LessOrEqual(t, len(outcome.Categories), 2)
	t.Logf("categories=%v content_type=%s", outcome.Categories, outcome.ContentType)
}
