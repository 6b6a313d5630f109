package ltapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/akhenakh/languagetool-lsp/annotate"
	"github.com/akhenakh/languagetool-lsp/buffer"
	"github.com/akhenakh/languagetool-lsp/settings"
)

// Match is one issue reported by the check API, translated into
// buffer-absolute byte offsets.
type Match struct {
	Start        int
	End          int
	Title        string
	Message      string
	Replacements []string
	Category     string
	Rule         string
}

const maxReplacements = 10

// Structs for the check API response.
// See: https://languagetool.org/http-api/swagger-ui/#!/default/post_check
type checkResponse struct {
	Matches []checkMatch `json:"matches"`
}

type checkMatch struct {
	Message      string        `json:"message"`
	ShortMessage string        `json:"shortMessage"`
	Rule         ruleInfo      `json:"rule"`
	Replacements []replacement `json:"replacements"`
	Offset       int           `json:"offset"` // UTF-16 units into the payload
	Length       int           `json:"length"` // UTF-16 units
}

type ruleInfo struct {
	ID       string       `json:"id"`
	Category categoryInfo `json:"category"`
}

type categoryInfo struct {
	ID string `json:"id"`
}

type replacement struct {
	Value string `json:"value"`
}

// Check submits an annotated payload to {server}/v2/check. offset is
// the byte position of the payload within the full document; the
// returned matches are shifted by it. language selects the static
// language when one is configured, otherwise detection is left to the
// server.
func (c *Client) Check(ctx context.Context, text *annotate.AnnotatedText, offset int, s *settings.Settings, language string) ([]Match, error) {
	data, err := json.Marshal(text)
	if err != nil {
		return nil, fmt.Errorf("encoding annotated text: %w", err)
	}

	lang := "auto"
	if language != "" && s.StaticLanguage != "" {
		lang = s.StaticLanguage
	}
	level := "default"
	if s.Picky {
		level = "picky"
	}

	form := url.Values{}
	form.Set("data", string(data))
	form.Set("language", lang)
	form.Set("level", level)
	setNonEmpty(form, "username", s.Username)
	setNonEmpty(form, "apiKey", s.APIKey)
	setNonEmpty(form, "motherTongue", s.MotherTongue)
	setNonEmpty(form, "enabledCategories", s.EnabledCategories)
	setNonEmpty(form, "disabledCategories", s.DisabledCategories)
	setNonEmpty(form, "enabledRules", strings.Join(s.EnabledRules, ","))
	setNonEmpty(form, "disabledRules", strings.Join(s.DisabledRules, ","))
	setNonEmpty(form, "preferredVariants", s.PreferredVariants())

	base, err := s.ServerURL()
	if err != nil {
		return nil, err
	}
	body, err := c.postForm(ctx, joinPath(base, "v2/check"), form)
	if err != nil {
		return nil, err
	}

	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding check response: %w", err)
	}

	// The server counts in UTF-16 code units (its strings are Java
	// strings); map them back onto the payload's bytes.
	content := text.Content()
	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		reps := make([]string, 0, min(len(m.Replacements), maxReplacements))
		for _, r := range m.Replacements[:min(len(m.Replacements), maxReplacements)] {
			reps = append(reps, r.Value)
		}
		matches = append(matches, Match{
			Start:        offset + buffer.UTF16ToByte(content, m.Offset),
			End:          offset + buffer.UTF16ToByte(content, m.Offset+m.Length),
			Title:        m.ShortMessage,
			Message:      m.Message,
			Replacements: reps,
			Category:     m.Rule.Category.ID,
			Rule:         m.Rule.ID,
		})
	}
	return matches, nil
}

func setNonEmpty(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}
