// Package kana expands a search string into equivalent Japanese phonetic
// script renderings so that substring matching treats ひらがな, カタカナ and
// half-width ｶﾀｶﾅ spellings of the same reading alike.
package kana

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

const (
	hiraganaFirst = 'ぁ' // U+3041
	hiraganaLast  = 'ゖ' // U+3096
	katakanaFirst = 'ァ' // U+30A1
	katakanaLast  = 'ヶ' // U+30F6
	kanaOffset    = katakanaFirst - hiraganaFirst
)

var (
	toKatakana = runes.Map(func(r rune) rune {
		switch {
		case r >= hiraganaFirst && r <= hiraganaLast:
			return r + kanaOffset
		case r == 'ゝ' || r == 'ゞ':
			return r + kanaOffset
		}
		return r
	})
	toHiragana = runes.Map(func(r rune) rune {
		switch {
		case r >= katakanaFirst && r <= katakanaLast:
			return r - kanaOffset
		case r == 'ヽ' || r == 'ヾ':
			return r - kanaOffset
		}
		return r
	})
)

// Expand returns the distinct script variants of text. The original string
// is always first; hiragana and katakana renderings of any kana runs follow,
// computed after folding half-width katakana to full width.
func Expand(text string) []string {
	variants := []string{text}
	if text == "" {
		return variants
	}

	folded := Fold(text)
	candidates := []string{
		folded,
		ToHiragana(folded),
		ToKatakana(folded),
	}

	seen := map[string]struct{}{text: {}}
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		variants = append(variants, c)
	}
	return variants
}

// Fold normalizes half-width katakana to full width and full-width ASCII
// to its narrow form.
func Fold(text string) string {
	out, _, err := transform.String(width.Fold, text)
	if err != nil {
		return text
	}
	return out
}

// ToKatakana converts every hiragana rune in text to katakana.
func ToKatakana(text string) string {
	out, _, err := transform.String(toKatakana, text)
	if err != nil {
		return text
	}
	return out
}

// ToHiragana converts every katakana rune in text to hiragana. Runes without
// a hiragana counterpart (ヷ, ヺ, the prolonged sound mark) are left alone.
func ToHiragana(text string) string {
	out, _, err := transform.String(toHiragana, text)
	if err != nil {
		return text
	}
	return out
}
