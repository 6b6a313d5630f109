package ltapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceAround(t *testing.T) {
	line := "First. This is a test sentence. Tail."
	start := strings.Index(line, "test")
	sentence, selStart, selEnd := sentenceAround(line, start, start+4)
	assert.Equal(t, "This is a test sentence", sentence)
	assert.Equal(t, "test", sentence[selStart:selEnd])

	// No periods: the whole line is the sentence.
	sentence, selStart, selEnd = sentenceAround("just some words", 5, 9)
	assert.Equal(t, "just some words", sentence)
	assert.Equal(t, "some", sentence[selStart:selEnd])
}

func TestEnglishSynonyms(t *testing.T) {
	var req struct {
		Message struct {
			Indices []int    `json:"indices"`
			Mode    int      `json:"mode"`
			Phrases []string `json:"phrases"`
			Text    string   `json:"text"`
		} `json:"message"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &req))
		w.Write([]byte(`{"data": {"suggestions": {"0": ["exam", "trial"], "1": ["quiz"]}}}`))
	}))
	defer srv.Close()

	p := &EnglishSynonyms{URL: srv.URL, hc: srv.Client()}
	line := "First. This is a test sentence. Tail."
	start := strings.Index(line, "test")
	synonyms, err := p.Synonyms(context.Background(), line, start, start+4)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"exam", "trial", "quiz"}, synonyms)
	assert.Equal(t, "This is a test sentence", req.Message.Text)
	assert.Equal(t, []string{"test"}, req.Message.Phrases)
	assert.Equal(t, []int{3}, req.Message.Indices)
}

func TestEnglishSynonymsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}}`))
	}))
	defer srv.Close()

	p := &EnglishSynonyms{URL: srv.URL, hc: srv.Client()}
	_, err := p.Synonyms(context.Background(), "a word here", 2, 6)
	assert.Error(t, err)
}

func TestGermanSynonyms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/synonyms/de/Test", r.URL.Path)
		require.Equal(t, "Das ist ein", r.URL.Query().Get("before"))
		require.Equal(t, "", r.URL.Query().Get("after"))
		w.Write([]byte(`{"synsets": [
			{"terms": [{"term": "Prüfung"}, {"term": "Examen"}]},
			{"terms": [{"term": "Versuch"}]}
		]}`))
	}))
	defer srv.Close()

	p := &GermanSynonyms{URL: srv.URL + "/synonyms/de/", hc: srv.Client()}
	line := "Das ist ein Test."
	start := strings.Index(line, "Test")
	synonyms, err := p.Synonyms(context.Background(), line, start, start+4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Prüfung", "Examen", "Versuch"}, synonyms)
}

func TestGermanSynonymsRejectsPhrases(t *testing.T) {
	p := &GermanSynonyms{URL: germanSynonymsURL, hc: http.DefaultClient}
	_, err := p.Synonyms(context.Background(), "ein ganz toller Satz", 4, 14)
	assert.Error(t, err)
}

func TestProviderFor(t *testing.T) {
	c := NewClient()
	p, ok := c.ProviderFor("en")
	require.True(t, ok)
	assert.IsType(t, &EnglishSynonyms{}, p)

	p, ok = c.ProviderFor("de")
	require.True(t, ok)
	assert.IsType(t, &GermanSynonyms{}, p)

	_, ok = c.ProviderFor("fr")
	assert.False(t, ok)
}
