package ltapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"github.com/tidwall/gjson"
)

// SynonymProvider suggests replacements for the selection
// [start, end) within line. Offsets are bytes.
type SynonymProvider interface {
	Synonyms(ctx context.Context, line string, start, end int) ([]string, error)
}

const (
	englishSynonymsURL = "https://qb-grammar-en.languagetool.org/phrasal-paraphraser/subscribe/"
	germanSynonymsURL  = "https://synonyms.languagetool.org/synonyms/de/"
)

// ProviderFor returns the synonym service for a configured variant
// ("en" or "de"), or false when the variant has none.
func (c *Client) ProviderFor(variant string) (SynonymProvider, bool) {
	switch variant {
	case "en":
		return &EnglishSynonyms{URL: englishSynonymsURL, hc: c.hc}, true
	case "de":
		return &GermanSynonyms{URL: germanSynonymsURL, hc: c.hc}, true
	}
	return nil, false
}

// sentenceAround narrows line to the period-delimited sentence that
// contains the selection, and rebases the selection into it.
func sentenceAround(line string, start, end int) (sentence string, selStart, selEnd int) {
	sStart := 0
	if i := strings.LastIndex(line[:start], "."); i >= 0 {
		sStart = i + 1
	}
	sEnd := len(line)
	if i := strings.Index(line[end:], "."); i >= 0 {
		sEnd = end + i
	}

	sentence = line[sStart:sEnd]
	trimmed := strings.TrimLeftFunc(sentence, unicode.IsSpace)
	sStart += len(sentence) - len(trimmed)
	sentence = strings.TrimRightFunc(trimmed, unicode.IsSpace)

	selStart = min(max(start-sStart, 0), len(sentence))
	selEnd = min(max(end-sStart, selStart), len(sentence))
	return sentence, selStart, selEnd
}

// EnglishSynonyms queries the phrasal paraphraser service, which takes
// the whole sentence plus the word index of the selection.
type EnglishSynonyms struct {
	URL string
	hc  *http.Client
}

func (p *EnglishSynonyms) Synonyms(ctx context.Context, line string, start, end int) ([]string, error) {
	sentence, selStart, selEnd := sentenceAround(line, start, end)
	word := strings.TrimSpace(sentence[selStart:selEnd])
	if word == "" {
		return nil, fmt.Errorf("empty selection")
	}
	index := wordIndex(sentence[:selStart])

	payload := map[string]any{
		"message": map[string]any{
			"indices": []int{index},
			"mode":    0,
			"phrases": []string{word},
			"text":    sentence,
		},
		"meta": map[string]any{
			"clientStatus": "string",
			"product":      "string",
			"traceID":      "string",
			"userID":       "string",
		},
		"response_queue": "string",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := doSynonymRequest(p.hc, req)
	if err != nil {
		return nil, err
	}

	suggestions := gjson.GetBytes(body, "data.suggestions")
	if !suggestions.IsObject() {
		return nil, fmt.Errorf("unexpected synonyms response")
	}
	var out []string
	suggestions.ForEach(func(_, group gjson.Result) bool {
		for _, s := range group.Array() {
			out = append(out, s.String())
		}
		return true
	})
	return out, nil
}

// wordIndex counts the words preceding the selection, so the service
// knows which word of the sentence to paraphrase.
func wordIndex(prefix string) int {
	n := 0
	state := -1
	var w string
	for rest := prefix; rest != ""; {
		w, rest, state = uniseg.FirstWordInString(rest, state)
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// GermanSynonyms queries the German synonym service. It handles single
// words only and passes the rest of the sentence as before/after
// context.
type GermanSynonyms struct {
	URL string
	hc  *http.Client
}

func (p *GermanSynonyms) Synonyms(ctx context.Context, line string, start, end int) ([]string, error) {
	sentence, selStart, selEnd := sentenceAround(line, start, end)
	word := strings.TrimSpace(sentence[selStart:selEnd])
	if word == "" {
		return nil, fmt.Errorf("empty selection")
	}
	if strings.ContainsFunc(word, unicode.IsSpace) {
		return nil, fmt.Errorf("synonyms are only available for single words")
	}
	before := strings.Join(strings.Fields(sentence[:selStart]), " ")
	after := strings.Join(strings.Fields(sentence[selEnd:]), " ")

	q := url.Values{}
	q.Set("before", before)
	q.Set("after", after)
	endpoint := p.URL + url.PathEscape(word) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := doSynonymRequest(p.hc, req)
	if err != nil {
		return nil, err
	}

	synsets := gjson.GetBytes(body, "synsets")
	if !synsets.IsArray() {
		return nil, fmt.Errorf("unexpected synonyms response")
	}
	var out []string
	for _, syn := range synsets.Array() {
		for _, term := range syn.Get("terms").Array() {
			if t := term.Get("term"); t.Exists() {
				out = append(out, t.String())
			}
		}
	}
	return out, nil
}

func doSynonymRequest(hc *http.Client, req *http.Request) ([]byte, error) {
	c := Client{hc: hc}
	return c.do(req)
}
