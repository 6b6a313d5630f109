package ltapi

import (
	"context"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/akhenakh/languagetool-lsp/settings"
)

// Words fetches the personal dictionary stored with the premium
// account. Requires credentials.
func (c *Client) Words(ctx context.Context, s *settings.Settings) ([]string, error) {
	if !s.HasCredentials() {
		return nil, ErrPremiumRequired
	}
	base, err := s.ServerURL()
	if err != nil {
		return nil, err
	}
	u := base.JoinPath("v2/words")
	q := url.Values{}
	q.Set("username", s.Username)
	q.Set("apiKey", s.APIKey)
	q.Set("limit", "1000")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var words []string
	for _, w := range gjson.GetBytes(body, "words").Array() {
		words = append(words, w.String())
	}
	return words, nil
}

// AddWord adds a word to the remote personal dictionary. Requires
// credentials.
func (c *Client) AddWord(ctx context.Context, s *settings.Settings, word string) (bool, error) {
	return c.editWord(ctx, s, "v2/words/add", "added", word)
}

// DeleteWord removes a word from the remote personal dictionary.
// Requires credentials.
func (c *Client) DeleteWord(ctx context.Context, s *settings.Settings, word string) (bool, error) {
	return c.editWord(ctx, s, "v2/words/delete", "deleted", word)
}

func (c *Client) editWord(ctx context.Context, s *settings.Settings, path, confirmKey, word string) (bool, error) {
	if !s.HasCredentials() {
		return false, ErrPremiumRequired
	}
	base, err := s.ServerURL()
	if err != nil {
		return false, err
	}
	form := url.Values{}
	form.Set("word", word)
	form.Set("username", s.Username)
	form.Set("apiKey", s.APIKey)

	body, err := c.postForm(ctx, joinPath(base, path), form)
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(body, confirmKey).Bool(), nil
}
