// Package locale carries the request language through context.Context so
// that label rendering never depends on process-wide state.
package locale

import (
	"context"

	"golang.org/x/text/language"
)

type ctxKey struct{}

// Default is used when a request carries no usable Accept-Language.
var Default = language.Japanese

var supported = []language.Tag{
	language.Japanese,
	language.English,
}

var matcher = language.NewMatcher(supported)

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return supported[idx]
}

func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// FromContext returns the request language, or Default.
func FromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return Default
}

// IsEnglish reports whether labels for ctx should be rendered in English.
func IsEnglish(ctx context.Context) bool {
	base, _ := FromContext(ctx).Base()
	english, _ := language.English.Base()
	return base == english
}
