package analyzer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/vision"
	"github.com/anime-shed/table-inspector-go/pkg/models"
)

type fakeVisionClient struct {
	calls    int
	lastSize image.Point
	result   *models.AnalysisResult
	err      error
	status   models.ConnectivityStatus
}

func (f *fakeVisionClient) Analyze(ctx context.Context, img image.Image, s vision.Settings) (*models.AnalysisResult, error) {
	f.calls++
	f.lastSize = img.Bounds().Size()
	return f.result, f.err
}

func (f *fakeVisionClient) TestConnection(ctx context.Context, s vision.Settings) models.ConnectivityStatus {
	return f.status
}

func settingsWithKey() vision.Settings {
	s := vision.DefaultSettings()
	s.APIKey = "sk-test-abcdefgh"
	return s
}

func grayImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}
	return img
}

func TestCoreAnalyzer_Analyze(t *testing.T) {
	want := &models.AnalysisResult{IsTable: true, Confidence: 0.8, TableData: models.TableData{{"a"}}}
	client := &fakeVisionClient{result: want}

	a, err := NewTableAnalyzer(client, DefaultOptions())
	if err != nil {
		t.Fatalf("NewTableAnalyzer failed: %v", err)
	}

	got, err := a.Analyze(context.Background(), grayImage(2048, 1024), settingsWithKey())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if got.Result != want {
		t.Errorf("Expected client result to be returned unchanged")
	}
	if client.lastSize != image.Pt(1024, 512) {
		t.Errorf("Expected the client to receive a 1024x512 image, got %v", client.lastSize)
	}
	if got.Original.Width != 2048 || got.Processed.Width != 1024 || got.Processed.Height != 512 {
		t.Errorf("Unexpected metadata original=%+v processed=%+v", got.Original, got.Processed)
	}
	if got.Stats.MeanLuminance < 80 || got.Stats.MeanLuminance > 100 {
		t.Errorf("Unexpected mean luminance %f", got.Stats.MeanLuminance)
	}
}

func TestCoreAnalyzer_SkipPreprocessing(t *testing.T) {
	client := &fakeVisionClient{result: &models.AnalysisResult{TableData: models.TableData{}}}
	a, _ := NewTableAnalyzer(client, DefaultOptions().WithoutPreprocessing())

	if _, err := a.Analyze(context.Background(), grayImage(1500, 20), settingsWithKey()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if client.lastSize != image.Pt(1500, 20) {
		t.Errorf("Expected the original size, got %v", client.lastSize)
	}
}

func TestCoreAnalyzer_PlaceholderKeyFailsFirst(t *testing.T) {
	client := &fakeVisionClient{}
	a, _ := NewTableAnalyzer(client, DefaultOptions())

	_, err := a.Analyze(context.Background(), grayImage(4, 4), vision.DefaultSettings())
	if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
	if client.calls != 0 {
		t.Errorf("Expected no client calls, got %d", client.calls)
	}
}

func TestCoreAnalyzer_Errors(t *testing.T) {
	upstream := apperrors.NewUpstreamStatusError(500, "boom")
	client := &fakeVisionClient{err: upstream}
	a, _ := NewTableAnalyzer(client, DefaultOptions())

	_, err := a.Analyze(context.Background(), grayImage(4, 4), settingsWithKey())
	if !errors.Is(err, upstream) {
		t.Errorf("Expected the client error to propagate, got %v", err)
	}

	_, err = a.Analyze(context.Background(), nil, settingsWithKey())
	if !apperrors.IsType(err, apperrors.ErrorTypePreprocessing) {
		t.Errorf("Expected preprocessing error for nil image, got %v", err)
	}
}

func TestNewTableAnalyzer_InvalidOptions(t *testing.T) {
	_, err := NewTableAnalyzer(&fakeVisionClient{}, DefaultOptions().WithMaxImageSize(-1, 10))
	if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestCoreAnalyzer_TestConnection(t *testing.T) {
	client := &fakeVisionClient{status: models.ConnectivityStatus{Success: true, Message: "connection succeeded"}}
	a, _ := NewTableAnalyzer(client, DefaultOptions())

	if got := a.TestConnection(context.Background(), settingsWithKey()); !got.Success {
		t.Errorf("Expected success, got %+v", got)
	}
}
