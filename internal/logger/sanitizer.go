package logger

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Sanitizer masks secrets before they reach a log line. The mock device
// API echoes whatever the web UI submits, which includes Wi-Fi passphrases
// and API tokens.
//
// Only values of sensitive keys are masked in key/value args. A secret
// embedded in the value of an innocuous key is only caught if it matches
// one of the inline patterns.
type Sanitizer struct {
	mu       sync.RWMutex
	patterns []SanitizeRule
}

// SanitizeRule is one inline replacement
type SanitizeRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// sensitiveKeys are matched as substrings of lower-cased keys, so
// "wifi.sta.pass" and "ap_psk" are both caught
var sensitiveKeys = []string{
	"pass", "pwd", "psk",
	"token", "secret", "apikey", "api_key",
	"credential", "auth",
}

// NewSanitizer creates a sanitizer with the default rules
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: []SanitizeRule{
			{regexp.MustCompile(`(?i)\b([\w.]*(?:pass|pwd|psk)[\w.]*)=[^&\s]+`), "$1=***"},
			{regexp.MustCompile(`(?i)\b([\w.]*(?:token|secret|api[_-]?key)[\w.]*)=[^&\s]+`), "$1=***"},
			{regexp.MustCompile(`(?i)bearer\s+\S+`), "bearer ***"},
		},
	}
}

// Sanitize applies every inline pattern to input
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := input
	for _, rule := range s.patterns {
		result = rule.Pattern.ReplaceAllString(result, rule.Replacement)
	}
	return result
}

// SanitizeArgs masks the values of sensitive keys in slog-style key/value
// args. Non-string values are left as they are.
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok || !IsSensitiveKey(key) {
			continue
		}
		switch v := result[i+1].(type) {
		case string:
			result[i+1] = maskValue(v)
		case error:
			result[i+1] = maskValue(v.Error())
		}
	}

	return result
}

// SanitizeParams returns a copy of params with sensitive values masked, as
// "k=v" pairs sorted by key, ready for logging
func (s *Sanitizer) SanitizeParams(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if IsSensitiveKey(k) {
			v = maskValue(v)
		}
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}

// AddRule adds a custom inline pattern
func (s *Sanitizer) AddRule(pattern string, replacement string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, SanitizeRule{Pattern: re, Replacement: replacement})
	return nil
}

// IsSensitiveKey reports whether values of key should be masked
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sk := range sensitiveKeys {
		if strings.Contains(lower, sk) {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last character of long values
func maskValue(value string) string {
	if len(value) <= 2 {
		return "***"
	}
	if len(value) <= 8 {
		return fmt.Sprintf("%s***", value[:1])
	}
	return fmt.Sprintf("%s***%s", value[:1], value[len(value)-1:])
}
