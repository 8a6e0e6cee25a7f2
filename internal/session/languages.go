package session

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LanguageProfile is the static per-language configuration.
type LanguageProfile struct {
	// Voice is the synthesis voice identifier. Optional; the table default
	// voice is used when empty.
	Voice string

	// Locale is the recognition locale code (e.g., "th-TH"). Required.
	Locale string
}

// Languages is a read-only table of LanguageProfiles keyed by canonical
// lowercase language name.
type Languages struct {
	profiles     map[string]LanguageProfile
	defaultVoice string
	order        []string
}

// NewLanguages builds a profile table. Keys are canonicalized (trimmed,
// lowercased). Every profile must carry a locale. order lists names in menu
// order; names it does not mention follow alphabetically, and unknown names
// in it are ignored.
func NewLanguages(profiles map[string]LanguageProfile, defaultVoice string, order ...string) (*Languages, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no languages configured")
	}
	table := make(map[string]LanguageProfile, len(profiles))
	for name, p := range profiles {
		key := Canonical(name)
		if key == "" {
			return nil, fmt.Errorf("empty language name")
		}
		if strings.TrimSpace(p.Locale) == "" {
			return nil, fmt.Errorf("language %q has no recognition locale", key)
		}
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("language %q configured twice", key)
		}
		table[key] = p
	}
	return &Languages{profiles: table, defaultVoice: defaultVoice, order: menuOrder(table, order)}, nil
}

func menuOrder(table map[string]LanguageProfile, preferred []string) []string {
	names := make([]string, 0, len(table))
	seen := make(map[string]bool, len(table))
	for _, name := range preferred {
		key := Canonical(name)
		if _, ok := table[key]; ok && !seen[key] {
			seen[key] = true
			names = append(names, key)
		}
	}

	var rest []string
	for key := range table {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Canonical normalizes a language name for lookup.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup finds a profile by case-insensitive name and returns the canonical key.
func (l *Languages) Lookup(name string) (string, LanguageProfile, bool) {
	key := Canonical(name)
	p, ok := l.profiles[key]
	return key, p, ok
}

// Voice returns the voice for a language, falling back to the default voice.
func (l *Languages) Voice(name string) string {
	if _, p, ok := l.Lookup(name); ok && p.Voice != "" {
		return p.Voice
	}
	return l.defaultVoice
}

// DefaultVoice returns the designated fallback voice.
func (l *Languages) DefaultVoice() string { return l.defaultVoice }

// Names returns the canonical language names in menu order.
func (l *Languages) Names() []string {
	return append([]string(nil), l.order...)
}

// DisplayName capitalizes the first letter of a canonical name.
func DisplayName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
