// Package redact provides PII redaction for report and audit-log context
// strings, adapted from the proxy's general-purpose pattern redactor down
// to the narrower set spec.md §4.D calls for (emails and U.S.-style SSNs),
// plus home-directory path scrubbing.
package redact

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	unixHomePattern    = regexp.MustCompile(`/Users/[^/]+/`)
	unixRootHomePatt   = regexp.MustCompile(`/home/[^/]+/`)
	windowsHomePattern = regexp.MustCompile(`[A-Za-z]:\\Users\\[^\\]+\\`)
)

// Context redacts emails and SSNs in a finding's context string and
// truncates it to maxChars, per spec.md §4.D.
func Context(s string, maxChars int) string {
	s = emailPattern.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = ssnPattern.ReplaceAllString(s, "[REDACTED_SSN]")
	if len(s) > maxChars {
		s = s[:maxChars]
	}
	return s
}

// FilePath replaces user-home segments in a path with a generic "<user>"
// placeholder: /Users/<name>/, \Users\<name>\, C:\Users\<name>\ → …/<user>/…
func FilePath(path string) string {
	path = windowsHomePattern.ReplaceAllString(path, `X:\Users\<user>\`)
	path = unixHomePattern.ReplaceAllString(path, "/Users/<user>/")
	path = unixRootHomePatt.ReplaceAllString(path, "/home/<user>/")
	return path
}

// Value redacts a configuration value whose key name suggests it carries a
// secret, per spec.md §4.E's config_changed rule.
func Value(key string, value any) any {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") || strings.Contains(lower, "key") {
		return "<redacted>"
	}
	return value
}
