package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/config"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestParseAnalysisText_PlainJSON(t *testing.T) {
	analysis, err := parseAnalysisText(`{
		"category": "RADIOLOGY",
		"service_type": "imaging",
		"search_terms": ["chest x-ray", "x-ray"],
		"priority": "routine"
	}`)
	require.NoError(t, err)
	assert.Equal(t, "RADIOLOGY", analysis.Category)
	assert.Equal(t, []string{"chest x-ray", "x-ray"}, analysis.SearchTerms)
	assert.Equal(t, entities.PriorityRoutine, analysis.Priority)
}

func TestParseAnalysisText_StripsMarkdownFences(t *testing.T) {
	fenced := "```json\n{\"category\": \"GENERAL\", \"search_terms\": [\"blood test\"]}\n```"
	analysis, err := parseAnalysisText(fenced)
	require.NoError(t, err)
	assert.Equal(t, "GENERAL", analysis.Category)

	bare := "```\n{\"category\": \"GENERAL\", \"search_terms\": [\"blood test\"]}\n```"
	analysis, err = parseAnalysisText(bare)
	require.NoError(t, err)
	assert.Equal(t, []string{"blood test"}, analysis.SearchTerms)
}

func TestParseAnalysisText_RejectsEmptySearchTerms(t *testing.T) {
	_, err := parseAnalysisText(`{"category": "GENERAL", "search_terms": []}`)
	assert.Error(t, err)

	_, err = parseAnalysisText(`{"category": "GENERAL"}`)
	assert.Error(t, err)
}

func TestParseAnalysisText_UnknownPriorityBecomesRoutine(t *testing.T) {
	analysis, err := parseAnalysisText(`{
		"category": "GENERAL",
		"search_terms": ["consultation"],
		"priority": "asap"
	}`)
	require.NoError(t, err)
	assert.Equal(t, entities.PriorityRoutine, analysis.Priority)
}

func TestParseAnalysisText_InvalidJSON(t *testing.T) {
	_, err := parseAnalysisText("the patient probably needs an x-ray")
	assert.Error(t, err)
}

func TestAnalyze_ParsesResponseEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"output": [{
				"content": [{
					"type": "output_text",
					"text": "{\"category\": \"RADIOLOGY\", \"search_terms\": [\"chest x-ray\"], \"priority\": \"routine\"}"
				}]
			}]
		}`))
	}))
	defer server.Close()

	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)
	client.baseURL = server.URL

	analysis, err := client.Analyze(context.Background(), "chest x-ray")
	require.NoError(t, err)
	assert.Equal(t, "RADIOLOGY", analysis.Category)
	assert.Equal(t, "openai", analysis.Source)
}

func TestAnalyze_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)
	client.baseURL = server.URL

	_, err = client.Analyze(context.Background(), "chest x-ray")
	assert.Error(t, err)
}

func TestAnalyze_RejectsEmptyQuery(t *testing.T) {
	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), "   ")
	assert.Error(t, err)
}

func TestTokenBucket_WaitHonorsContext(t *testing.T) {
	bucket := newTokenBucketWithRate(60, 1)

	// First token is available immediately.
	require.NoError(t, bucket.Wait(context.Background()))

	// The bucket is now empty and refills once per second; a canceled
	// context unblocks the waiter.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bucket.Wait(ctx), context.DeadlineExceeded)
}

func TestTokenBucket_DisabledBelowZero(t *testing.T) {
	assert.Nil(t, newTokenBucket(-1, 5))
	assert.NotNil(t, newTokenBucket(0, 0))
}

func TestTokenBucket_StopHaltsRefill(t *testing.T) {
	// One-millisecond refill interval; stop, then drain whatever
	// tokens exist. A stopped bucket never produces another.
	bucket := newTokenBucketWithRate(60000, 1)
	bucket.Stop()
	time.Sleep(5 * time.Millisecond)
	for {
		select {
		case <-bucket.tokens:
			continue
		default:
		}
		break
	}

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bucket.Wait(ctx), context.DeadlineExceeded)
}

func TestClientClose_Idempotent(t *testing.T) {
	client, err := NewClient(&config.OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}
