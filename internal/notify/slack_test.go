package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPostsTextPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	err := n.Notify(context.Background(), "[PV collection complete]")
	require.NoError(t, err)

	assert.Equal(t, "[PV collection complete]", got["text"])
}

func TestNotifySkipsWithoutWebhookURL(t *testing.T) {
	n := NewSlackNotifier("", nil)
	assert.NoError(t, n.Notify(context.Background(), "ignored"))
}

func TestNotifyReportsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	err := n.Notify(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_payload")
}
