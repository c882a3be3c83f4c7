// Package keyword provides the canonical keyword value type and slug
// derivation used to partition all pipeline artifacts.
package keyword

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Sentinel errors for keyword validation.
var (
	ErrEmptyKeyword = errors.New("keyword is required")
	ErrInvalidSlug  = errors.New("invalid slug: must be lowercase alphanumeric with hyphens, no path separators")
)

// slugPattern validates slugs: lowercase alphanumeric with hyphens, 1-80 chars.
var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,78}[a-z0-9])?$`)

// maxSlugLen bounds slug length so artifact paths stay manageable.
const maxSlugLen = 80

// Keyword is the canonical user-supplied search phrase plus its derived slug.
// The slug is the primary partitioning key for every artifact produced from
// this keyword, so it must be stable across runs.
type Keyword struct {
	// Raw is the keyword exactly as supplied, whitespace-trimmed.
	Raw string `json:"raw"`

	// Slug is the lowercase, dash-separated partition key derived from Raw.
	Slug string `json:"slug"`
}

// New validates and normalizes a raw keyword string.
// The empty string (or a string that slugifies to nothing) is rejected.
func New(raw string) (Keyword, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Keyword{}, ErrEmptyKeyword
	}

	slug := Slugify(trimmed)
	if slug == "" {
		return Keyword{}, ErrEmptyKeyword
	}

	return Keyword{Raw: trimmed, Slug: slug}, nil
}

// Slugify converts free text into a partition-safe slug: lowercase,
// non-alphanumerics collapsed to hyphens, trimmed, length-bounded.
// Slugify is idempotent: Slugify(Slugify(s)) == Slugify(s).
func Slugify(text string) string {
	slug := strings.ToLower(text)

	// Replace spaces and underscores with hyphens
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	// Remove non-alphanumeric characters except hyphens
	reg := regexp.MustCompile(`[^a-z0-9-]`)
	slug = reg.ReplaceAllString(slug, "")

	// Replace multiple hyphens with single hyphen
	reg = regexp.MustCompile(`-+`)
	slug = reg.ReplaceAllString(slug, "-")

	// Trim hyphens from ends
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		// Don't end on a hyphen
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// ValidateSlug checks that a slug is well-formed and safe for use in file
// paths. Rejects path traversal and anything Slugify would not produce.
func ValidateSlug(slug string) error {
	if slug == "" {
		return ErrEmptyKeyword
	}
	// Prevent path traversal attacks
	if strings.Contains(slug, "..") || strings.Contains(slug, "/") || strings.Contains(slug, "\\") {
		return ErrInvalidSlug
	}
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// TitleCase renders the raw keyword with each word capitalized, for use in
// generated headings ("antique lamps" -> "Antique Lamps").
func (k Keyword) TitleCase() string {
	words := strings.Fields(k.Raw)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// String returns the raw keyword.
func (k Keyword) String() string {
	return k.Raw
}
