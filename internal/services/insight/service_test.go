package insight

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/models"
)

// --- mock Gemini client ---

type mockGeminiClient struct {
	response   string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (m *mockGeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return m.GenerateWithSearch(ctx, "", prompt)
}

func (m *mockGeminiClient) GenerateWithSearch(ctx context.Context, system, prompt string) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockGeminiClient) Model() string { return "test-model" }

func TestSummarizeNews(t *testing.T) {
	gemini := &mockGeminiClient{response: "Shares rose on strong earnings."}
	svc := NewService(gemini, common.NewSilentLogger())

	insight, err := svc.SummarizeNews(context.Background(), "AAPL", 0.17, 0.094)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", insight.Ticker)
	assert.Equal(t, models.InsightNews, insight.Kind)
	assert.Equal(t, "Shares rose on strong earnings.", insight.Text)
	assert.Equal(t, "test-model", insight.Model)
	assert.False(t, insight.GeneratedAt.IsZero())

	assert.Contains(t, gemini.lastPrompt, "AAPL")
	assert.Contains(t, gemini.lastPrompt, "17.0%")
	assert.Contains(t, gemini.lastPrompt, "9.4%")
	assert.Contains(t, gemini.lastSystem, "financial news")

	_, err = svc.SummarizeNews(context.Background(), "AAPL", 0.17, 0.094)
	require.NoError(t, err)
	assert.Equal(t, 1, gemini.calls, "repeat request served from cache")

	_, err = svc.SummarizeNews(context.Background(), "AAPL", 0.2, 0.094)
	require.NoError(t, err)
	assert.Equal(t, 2, gemini.calls, "different returns regenerate")
}

func TestInsightCache_Bounded(t *testing.T) {
	gemini := &mockGeminiClient{response: "ok"}
	svc := NewService(gemini, common.NewSilentLogger())
	svc.maxEntries = 3

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := svc.SummarizeNews(ctx, "AAPL", float64(i)/100, 0.05)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	assert.Len(t, svc.cache, 3)
	assert.Equal(t, 10, gemini.calls)

	// the newest entry survives eviction
	_, err := svc.SummarizeNews(ctx, "AAPL", 0.09, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 10, gemini.calls)
}

func TestInsightCache_DropsStaleEntries(t *testing.T) {
	gemini := &mockGeminiClient{response: "ok"}
	svc := NewService(gemini, common.NewSilentLogger())

	stale := &models.Insight{Ticker: "OLD", Kind: models.InsightNews, GeneratedAt: time.Now().Add(-2 * common.FreshnessNews)}
	svc.cache["stale"] = cacheEntry{insight: stale, ttl: common.FreshnessNews}

	_, ok := svc.cached("stale")
	assert.False(t, ok)
	assert.NotContains(t, svc.cache, "stale")

	svc.cache["stale"] = cacheEntry{insight: stale, ttl: common.FreshnessNews}
	_, err := svc.ProfileFund(context.Background(), "VAS", "")
	require.NoError(t, err)
	assert.Len(t, svc.cache, 1, "stale entries pruned on store")
}

func TestProfileFund(t *testing.T) {
	gemini := &mockGeminiClient{response: "A broad US equity index fund."}
	svc := NewService(gemini, common.NewSilentLogger())

	insight, err := svc.ProfileFund(context.Background(), "SPY", "SPDR S&P 500 ETF Trust")
	require.NoError(t, err)
	assert.Equal(t, models.InsightFundProfile, insight.Kind)
	assert.Contains(t, gemini.lastPrompt, "SPDR S&P 500 ETF Trust")
	assert.Contains(t, gemini.lastPrompt, "Ticker: SPY")

	_, err = svc.ProfileFund(context.Background(), "IVV", "")
	require.NoError(t, err)
	assert.Contains(t, gemini.lastPrompt, "Fund name: IVV", "ticker stands in for a missing name")
}

func TestInsights_Unavailable(t *testing.T) {
	svc := NewService(nil, common.NewSilentLogger())
	assert.False(t, svc.Available())

	_, err := svc.SummarizeNews(context.Background(), "AAPL", 0.1, 0.1)
	assert.ErrorIs(t, err, ErrInsightsUnavailable)

	_, err = svc.ProfileFund(context.Background(), "SPY", "")
	assert.ErrorIs(t, err, ErrInsightsUnavailable)
}

func TestInsights_Errors(t *testing.T) {
	upstream := errors.New("quota exceeded")
	svc := NewService(&mockGeminiClient{err: upstream}, common.NewSilentLogger())

	_, err := svc.SummarizeNews(context.Background(), "AAPL", 0.1, 0.05)
	assert.ErrorIs(t, err, upstream)

	_, err = svc.SummarizeNews(context.Background(), " ", 0.1, 0.05)
	assert.Error(t, err)

	_, err = svc.SummarizeNews(context.Background(), "AAPL", math.NaN(), 0.05)
	assert.Error(t, err)

	svc = NewService(&mockGeminiClient{response: "  "}, common.NewSilentLogger())
	_, err = svc.ProfileFund(context.Background(), "SPY", "")
	assert.ErrorContains(t, err, "empty response")
}
