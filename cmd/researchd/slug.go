package main

import (
	"strings"
	"unicode"
)

// maxSlugLen bounds generated file names.
const maxSlugLen = 60

// slugify turns an idea into a filesystem-safe slug: lowercase
// alphanumerics with single hyphens, trimmed to maxSlugLen.
func slugify(idea string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(idea) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "proposal"
	}
	return slug
}
