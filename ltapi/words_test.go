package ltapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhenakh/languagetool-lsp/settings"
)

func premiumSettings(server string) settings.Settings {
	s := settings.Default()
	s.Server = server
	s.Username = "user@example.com"
	s.APIKey = "secret"
	return s
}

func TestWordsRequireCredentials(t *testing.T) {
	s := settings.Default()
	c := NewClient()
	ctx := context.Background()

	_, err := c.Words(ctx, &s)
	assert.ErrorIs(t, err, ErrPremiumRequired)
	_, err = c.AddWord(ctx, &s, "foo")
	assert.ErrorIs(t, err, ErrPremiumRequired)
	_, err = c.DeleteWord(ctx, &s, "foo")
	assert.ErrorIs(t, err, ErrPremiumRequired)
}

func TestWords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/words", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "user@example.com", q.Get("username"))
		require.Equal(t, "secret", q.Get("apiKey"))
		require.Equal(t, "1000", q.Get("limit"))
		w.Write([]byte(`{"words": ["hoopy", "frood"]}`))
	}))
	defer srv.Close()

	s := premiumSettings(srv.URL)
	words, err := NewClient().Words(context.Background(), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"hoopy", "frood"}, words)
}

func TestAddAndDeleteWord(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseForm())
		require.Equal(t, "towel", r.PostFormValue("word"))
		require.Equal(t, "user@example.com", r.PostFormValue("username"))
		require.Equal(t, "secret", r.PostFormValue("apiKey"))
		switch path {
		case "/v2/words/add":
			w.Write([]byte(`{"added": true}`))
		case "/v2/words/delete":
			w.Write([]byte(`{"deleted": false}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := premiumSettings(srv.URL)
	c := NewClient()

	added, err := c.AddWord(context.Background(), &s, "towel")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "/v2/words/add", path)

	deleted, err := c.DeleteWord(context.Background(), &s, "towel")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, "/v2/words/delete", path)
}
