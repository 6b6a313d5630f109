// Package settings holds the client-pushed configuration for the
// check server. The whole value is replaced on a configuration-change
// event and snapshot-copied at the start of each check, so an in-flight
// check never observes a partial update.
package settings

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
)

// Endpoint describes one known check service endpoint and its request
// budget.
type Endpoint struct {
	URL               string
	RequestsPerMinute float64
	MaxSize           int
}

// MinDelay returns the minimum spacing between requests that stays
// within the endpoint's rate budget.
func (e Endpoint) MinDelay() time.Duration {
	return time.Duration(float64(time.Minute) / e.RequestsPerMinute)
}

// Endpoints lists the known service tiers: the public API, the premium
// API, and a self-hosted server (empty URL, configured by the user).
var Endpoints = [...]Endpoint{
	{URL: "https://api.languagetool.org", RequestsPerMinute: 20, MaxSize: 20000},
	{URL: "https://api.languagetoolplus.com", RequestsPerMinute: 80, MaxSize: 75000},
	{URL: "", RequestsPerMinute: 120, MaxSize: 1000000},
}

// Settings is the full configuration surface. Field names follow the
// editor-side configuration schema.
type Settings struct {
	Server   string `json:"server"`
	APIKey   string `json:"api_key"`
	Username string `json:"username"`

	AutoCheck      bool    `json:"auto_check"`
	AutoCheckDelay float64 `json:"auto_check_delay"` // milliseconds
	Synonyms       string  `json:"synonyms"`         // "en" or "de"

	MotherTongue    string            `json:"mother_tongue"`
	StaticLanguage  string            `json:"static_language"`
	LanguageVariety map[string]string `json:"language_variety"`

	Dictionary     []string `json:"dictionary"`
	SyncDictionary bool     `json:"sync_dictionary"`
	// Snapshot of the last remote word-list synchronization.
	RemoteDictionary []string `json:"remote_dictionary"`

	Picky              bool     `json:"picky"`
	EnabledCategories  string   `json:"enabled_categories"`
	DisabledCategories string   `json:"disabled_categories"`
	EnabledRules       []string `json:"enabled_rules"`
	DisabledRules      []string `json:"disabled_rules"`
}

// Default returns the settings used before the client pushes any.
func Default() Settings {
	return Settings{
		Server:         Endpoints[0].URL,
		AutoCheck:      true,
		AutoCheckDelay: float64(Endpoints[0].MinDelay() / time.Millisecond),
		Synonyms:       "en",
		LanguageVariety: map[string]string{
			"en": "en-US",
			"de": "de-DE",
			"pt": "pt-PT",
			"ca": "ca-ES",
		},
	}
}

// Decode unmarshals a configuration value on top of the defaults, so
// omitted fields keep their default values.
func Decode(raw json.RawMessage) (Settings, error) {
	s := Default()
	if len(raw) == 0 || string(raw) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if s.Server == "" {
		s.Server = Endpoints[0].URL
	}
	return s, nil
}

// ServerURL parses the configured server base URL.
func (s *Settings) ServerURL() (*url.URL, error) {
	u, err := url.Parse(s.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", s.Server, err)
	}
	return u, nil
}

// PreferredVariants returns the language variety map as the
// comma-separated list the check API expects, in stable order.
func (s *Settings) PreferredVariants() string {
	variants := make([]string, 0, len(s.LanguageVariety))
	for _, v := range s.LanguageVariety {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	return strings.Join(variants, ",")
}

// HasCredentials reports whether premium username and API key are set.
func (s *Settings) HasCredentials() bool {
	return s.Username != "" && s.APIKey != ""
}

// HasWord reports whether word is in the active dictionary: the local
// list, plus the remote snapshot when synchronization is enabled.
// Lookups are case-sensitive.
func (s *Settings) HasWord(word string) bool {
	if slices.Contains(s.Dictionary, word) {
		return true
	}
	return s.SyncDictionary && slices.Contains(s.RemoteDictionary, word)
}

// Clone returns a deep copy, so a check running on the copy is isolated
// from concurrent configuration changes.
func (s *Settings) Clone() Settings {
	c := *s
	c.LanguageVariety = make(map[string]string, len(s.LanguageVariety))
	for k, v := range s.LanguageVariety {
		c.LanguageVariety[k] = v
	}
	c.Dictionary = slices.Clone(s.Dictionary)
	c.RemoteDictionary = slices.Clone(s.RemoteDictionary)
	c.EnabledRules = slices.Clone(s.EnabledRules)
	c.DisabledRules = slices.Clone(s.DisabledRules)
	return c
}
