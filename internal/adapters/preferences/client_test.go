package preferences

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/batchwatch/internal/domain/model"
	obserrors "github.com/target/batchwatch/internal/observability/errors"
)

const samplePrefs = `[
	{"PreferenceTitle":"Export","IsOn":true,"LastRunDate":"2026-10-16T08:00:00Z","BatchRunFrequency":60,"AproxBatchRunTime":10},
	{"PreferenceTitle":"Cleanup","IsOn":false,"LastRunDate":null,"BatchRunFrequency":15,"AproxBatchRunTime":1}
]`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func mustClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func requireFetchError(t *testing.T, err error, kind ErrorKind) *FetchError {
	t.Helper()
	require.Error(t, err)
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "expected *FetchError, got %T", err)
	assert.Equal(t, kind, fe.Kind)
	return fe
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing base url", cfg: Config{}},
		{name: "relative base url", cfg: Config{BaseURL: "app.local/rest"}},
		{name: "bad records path", cfg: Config{BaseURL: "https://app.local", RecordsPath: "items[?"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewClientEndpoint(t *testing.T) {
	c := mustClient(t, Config{BaseURL: "https://app.local/rest/batchjobs/v1/"})
	assert.Equal(t, "https://app.local/rest/batchjobs/v1/GetBatchJobsPreferences", c.Endpoint())
}

func TestFetch_SendsBasicAuthAndDecodes(t *testing.T) {
	var gotPath, gotUser, gotPass, gotAccept string
	var gotAuthOK bool
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, gotAuthOK = r.BasicAuth()
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePrefs))
	})

	c := mustClient(t, Config{BaseURL: srv.URL + "/rest", Username: "watcher", Password: "s3cret"})
	prefs, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/rest/GetBatchJobsPreferences", gotPath)
	assert.True(t, gotAuthOK)
	assert.Equal(t, "watcher", gotUser)
	assert.Equal(t, "s3cret", gotPass)
	assert.Equal(t, "application/json", gotAccept)

	require.Len(t, prefs, 2)
	assert.Equal(t, "Export", prefs[0].Title)
	assert.Equal(t, time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC), prefs[0].LastRunAt.Time())
	assert.Equal(t, "Cleanup", prefs[1].Title)
	assert.True(t, prefs[1].LastRunAt.Never())
}

func TestFetch_EmptyListIsNotAnError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	prefs, err := mustClient(t, Config{BaseURL: srv.URL}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	})

	prefs, err := mustClient(t, Config{BaseURL: srv.URL}).Fetch(context.Background())
	assert.Nil(t, prefs)
	fe := requireFetchError(t, err, KindStatus)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Contains(t, err.Error(), "500 Internal Server Error")
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestFetch_EmptyCredentialsStillSendAuthorization(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := mustClient(t, Config{BaseURL: srv.URL}).Fetch(context.Background())
	require.NoError(t, err)
}

func TestFetch_MalformedBodyIsDecodeError(t *testing.T) {
	bodies := map[string]string{
		"html":          `<html><body>login</body></html>`,
		"truncated":     `[{"PreferenceTitle":"Export"`,
		"bad timestamp": `[{"PreferenceTitle":"Export","LastRunDate":"tomorrow"}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := mustClient(t, Config{BaseURL: srv.URL}).Fetch(context.Background())
			requireFetchError(t, err, KindDecode)
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := mustClient(t, Config{BaseURL: base, Timeout: time.Second}).Fetch(context.Background())
	requireFetchError(t, err, KindTransport)
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePrefs))
	})

	_, err := mustClient(t, Config{BaseURL: srv.URL, MaxBodyBytes: 16}).Fetch(context.Background())
	requireFetchError(t, err, KindTransport)
}

func TestFetch_RecordsPath(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"items":` + samplePrefs + `}}`))
	})

	prefs, err := mustClient(t, Config{BaseURL: srv.URL, RecordsPath: "data.items"}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "Export", prefs[0].Title)
}

func TestFetch_RecordsPathMissingYieldsEmpty(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":[]}`))
	})

	prefs, err := mustClient(t, Config{BaseURL: srv.URL, RecordsPath: "data.items"}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestFetch_RecordsPathSelectingObjectIsDecodeError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"PreferenceTitle":"Export"}}`))
	})

	_, err := mustClient(t, Config{BaseURL: srv.URL, RecordsPath: "data"}).Fetch(context.Background())
	requireFetchError(t, err, KindDecode)
}

func TestFetch_AppliesDecodeOptions(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"PreferenceTitle":"Hourly","IsOn":true,"LastRunDate":"2026-10-16T08:00:00","BatchRunFrequency":1}]`))
	})

	c := mustClient(t, Config{
		BaseURL: srv.URL,
		Decode: model.DecodeOptions{
			Location:     time.FixedZone("UTC+2", 2*60*60),
			IntervalUnit: model.IntervalUnitHours,
		},
	})
	prefs, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, 60, prefs[0].IntervalMinutes)
	assert.True(t, time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC).Equal(prefs[0].LastRunAt.Time()))
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := error(&FetchError{Kind: KindTransport, Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "preferences transport error: dial tcp: refused", err.Error())
	assert.Equal(t, "fetch_transport", obserrors.Classify(fmt.Errorf("run: %w", err)))
}
