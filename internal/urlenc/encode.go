// Package urlenc implements the URL component encoding used by Gerrit web
// URLs: components are percent-encoded twice so they survive one decode pass
// by the server (or a proxy) before the router sees them.
package urlenc

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// shouldEscape reports whether c is outside the encodeURIComponent
// unreserved set.
func shouldEscape(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return false
	}
	return true
}

// Escape percent-encodes every byte outside the unreserved set, the same
// way a browser's encodeURIComponent does for valid UTF-8. Invalid UTF-8
// bytes are escaped individually, so Escape is total over all strings.
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EncodeComponent double-encodes raw and then restores the readable forms
// of ':' and ' ' (as '+'). When preserveSlashes is set, '/' is kept literal
// too, which is what repository names and file paths want.
func EncodeComponent(raw string, preserveSlashes bool) string {
	out := Escape(Escape(raw))
	out = strings.ReplaceAll(out, "%253A", ":")
	out = strings.ReplaceAll(out, "%2520", "+")
	if preserveSlashes {
		out = strings.ReplaceAll(out, "%252F", "/")
	}
	return out
}

// EncodeComponentSingle encodes raw once, writing spaces as '+'.
// DecodeComponentOnce is its inverse.
func EncodeComponentSingle(raw string) string {
	return strings.ReplaceAll(Escape(raw), "%20", "+")
}

// DecodeComponentOnce replaces literal '+' with a space and performs exactly
// one percent-decoding pass. It is not the inverse of EncodeComponent.
func DecodeComponentOnce(raw string) (string, error) {
	return url.PathUnescape(strings.ReplaceAll(raw, "+", "%20"))
}

// DecodeComponent undoes EncodeComponent by running two decode passes.
func DecodeComponent(raw string) (string, error) {
	once, err := DecodeComponentOnce(raw)
	if err != nil {
		return "", err
	}
	return DecodeComponentOnce(once)
}
