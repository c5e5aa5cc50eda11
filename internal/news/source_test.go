package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSourceConfig(url string) HTTPSourceConfig {
	cfg := DefaultHTTPSourceConfig(url)
	cfg.RatePerSecond = 1000
	cfg.Burst = 1000
	cfg.RequestTimeout = time.Second
	return cfg
}

func TestHTTPSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"articles":[
			{"title":"Fed holds rates","source":"Wire","category":"Policy","sentiment":"neutral","summary":"s"},
			{"title":"BTC rallies","source":"Desk","category":"Crypto","sentiment":"bullish","summary":"s"}
		]}`))
	}))
	defer server.Close()

	source := NewHTTPSource(testSourceConfig(server.URL), nil)

	articles, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Fed holds rates", articles[0].Title)
	assert.Equal(t, "Crypto", articles[1].Category)
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := NewHTTPSource(testSourceConfig(server.URL), nil)

	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles": nope`))
	}))
	defer server.Close()

	source := NewHTTPSource(testSourceConfig(server.URL), nil)

	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_EmptyFeedIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[]}`))
	}))
	defer server.Close()

	source := NewHTTPSource(testSourceConfig(server.URL), nil)

	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHTTPSource(testSourceConfig(server.URL), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := source.Fetch(ctx)
		require.Error(t, err)
	}
	require.Equal(t, 3, hits)

	// Breaker is now open: the next attempt fails fast without a request.
	_, err := source.Fetch(ctx)
	assert.Error(t, err)
	assert.Equal(t, 3, hits)
}
