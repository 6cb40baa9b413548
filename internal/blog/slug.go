package blog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const maxSlugAttempts = 1000

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugHyphens = regexp.MustCompile(`-{2,}`)
)

const fallbackSlug = "post"

// Slugify converts s to a lowercase ASCII slug.
// Accents are stripped first; remaining non-Latin text is transliterated.
func Slugify(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, errTransform := transform.String(stripAccents, s)
	if errTransform != nil {
		result = s
	}
	result = unidecode.Unidecode(result)
	result = strings.ToLower(result)
	result = strings.Join(strings.Fields(result), "-")
	result = slugInvalid.ReplaceAllString(result, "")
	result = slugHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// UniqueSlug slugifies title and appends -1, -2, ... until no row of model
// other than excludeID uses it.
func UniqueSlug(ctx context.Context, conn *gorm.DB, model any, title string, excludeID uint64) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = fallbackSlug
	}
	candidate := base
	for counter := 1; counter <= maxSlugAttempts; counter++ {
		query := conn.WithContext(ctx).Model(model).Where("slug = ?", candidate)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		if errCount := query.Count(&count).Error; errCount != nil {
			return "", fmt.Errorf("blog: check slug: %w", errCount)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
	return "", fmt.Errorf("blog: no free slug for %q", base)
}
