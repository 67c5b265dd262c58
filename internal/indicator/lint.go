package indicator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Problem describes a raw setting that Resolve would silently replace
type Problem struct {
	Key        string
	Value      string
	Fallback   string
	Suggestion string
	// DuplicateOf names the spelling of the same key that takes precedence
	DuplicateOf string
}

func (p Problem) String() string {
	if p.DuplicateOf != "" {
		return fmt.Sprintf("%s = %q duplicates %s, which is used instead", p.Key, p.Value, p.DuplicateOf)
	}
	msg := fmt.Sprintf("%s = %q is not recognised, %s will be used", p.Key, p.Value, p.Fallback)
	if p.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", p.Suggestion)
	}
	return msg
}

var keyOptions = map[string][]string{
	KeySize:           {"Small", "Medium", "Large"},
	KeyPosition:       {"NW", "NE", "SW", "SE"},
	KeyRecordingColor: {"None", "Red", "Green"},
	KeyStreamingColor: {"None", "Red", "Green"},
	KeyDuration:       {"Always", "Never", "Sec1", "Sec3"},
}

// KeyOptions returns the accepted values for a configuration key
func KeyOptions(key string) []string {
	return keyOptions[key]
}

// Lint reports every key or value in raw that Resolve does not recognise,
// with the closest accepted spelling when one is close enough
func Lint(raw map[string]string) []Problem {
	keys := make([]string, 0, len(keyOptions))
	for k := range keyOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resolved := Resolve(raw)
	var problems []Problem

	rawKeys := make([]string, 0, len(raw))
	for k := range raw {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	for _, k := range rawKeys {
		if CanonicalKey(k) != "" {
			continue
		}
		problems = append(problems, Problem{
			Key:        k,
			Value:      raw[k],
			Fallback:   "nothing",
			Suggestion: suggest(k, keys),
		})
	}

	for _, key := range keys {
		matches := matchingKeys(raw, key)
		for _, dup := range matches[min(1, len(matches)):] {
			problems = append(problems, Problem{
				Key:         dup,
				Value:       raw[dup],
				DuplicateOf: matches[0],
			})
		}

		value, ok := lookupKey(raw, key)
		if !ok || strings.TrimSpace(value) == "" || accepted(key, value) {
			continue
		}
		problems = append(problems, Problem{
			Key:        key,
			Value:      value,
			Fallback:   fallbackName(key, resolved),
			Suggestion: suggest(value, keyOptions[key]),
		})
	}

	return problems
}

// CanonicalKey returns the configuration key matching k case-insensitively,
// or "" when k is unknown
func CanonicalKey(k string) string {
	for key := range keyOptions {
		if strings.EqualFold(k, key) {
			return key
		}
	}
	return ""
}

func accepted(key, value string) bool {
	for _, opt := range keyOptions[key] {
		if strings.EqualFold(strings.TrimSpace(value), opt) {
			return true
		}
	}
	return false
}

func fallbackName(key string, s AppearanceSettings) string {
	switch key {
	case KeySize:
		return s.Size.String()
	case KeyPosition:
		return string(s.Corner)
	case KeyRecordingColor:
		return s.RecordColor.String()
	case KeyStreamingColor:
		return s.StreamColor.String()
	default:
		return s.Duration.String()
	}
}

// suggest returns the best fuzzy match for value among options
func suggest(value string, options []string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	lower := make([]string, len(options))
	for i, opt := range options {
		lower[i] = strings.ToLower(opt)
	}

	matches := fuzzy.Find(strings.ToLower(value), lower)
	if len(matches) == 0 {
		return ""
	}
	return options[matches[0].Index]
}
