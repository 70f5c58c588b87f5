// Package richtext размечает текст поста: ссылки, упоминания и хэштеги.
package richtext

import (
	"iter"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Kind string

const (
	KindText    Kind = "text"
	KindLink    Kind = "link"
	KindMention Kind = "mention"
	KindHashtag Kind = "hashtag"
)

// Span - фрагмент текста. Text всегда содержит исходные символы,
// так что склейка Text всех фрагментов дает исходную строку.
type Span struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
	Value string `json:"value,omitempty"`
	Href  string `json:"href,omitempty"`
}

const maxHashtagLength = 100

var (
	tokenPattern = regexp.MustCompile(`https?://[^\s<>"]+|@[A-Za-z0-9_]+|#[\p{L}\p{N}_]+`)
	urlTrailing  = ".,;:!?'\")]}"
)

// Annotate лениво разбивает text на фрагменты. Последовательность можно
// обходить повторно.
func Annotate(text string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		pending, pos := 0, 0
		for pos < len(text) {
			loc := tokenPattern.FindStringIndex(text[pos:])
			if loc == nil {
				break
			}
			start, end := pos+loc[0], pos+loc[1]
			span, end, ok := classify(text, start, end)
			pos = end
			if !ok {
				continue
			}
			if start > pending {
				if !yield(Span{Kind: KindText, Text: text[pending:start]}) {
					return
				}
			}
			if !yield(span) {
				return
			}
			pending = end
		}
		if pending < len(text) {
			yield(Span{Kind: KindText, Text: text[pending:]})
		}
	}
}

// classify проверяет найденный токен и может укоротить его конец.
func classify(text string, start, end int) (Span, int, bool) {
	token := text[start:end]
	switch token[0] {
	case '@', '#':
		// user@example.com и a#b остаются текстом
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordRune(r) {
			return Span{}, end, false
		}
	}

	switch token[0] {
	case '@':
		name := strings.ToLower(token[1:])
		if len(name) < 3 || len(name) > 30 {
			return Span{}, end, false
		}
		return Span{Kind: KindMention, Text: token, Value: name, Href: "/users/" + name}, end, true
	case '#':
		tag := strings.ToLower(token[1:])
		if !strings.ContainsFunc(tag, unicode.IsLetter) || utf8.RuneCountInString(tag) > maxHashtagLength {
			return Span{}, end, false
		}
		return Span{Kind: KindHashtag, Text: token, Value: tag, Href: "/hashtags/" + tag}, end, true
	default:
		trimmed := strings.TrimRight(token, urlTrailing)
		if !strings.Contains(strings.TrimPrefix(strings.TrimPrefix(trimmed, "https://"), "http://"), ".") {
			return Span{}, end, false
		}
		end = start + len(trimmed)
		return Span{Kind: KindLink, Text: trimmed, Value: trimmed, Href: trimmed}, end, true
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Hashtags возвращает уникальные хэштеги в порядке появления.
func Hashtags(text string) []string {
	return values(text, KindHashtag)
}

// Mentions возвращает уникальные упомянутые имена пользователей.
func Mentions(text string) []string {
	return values(text, KindMention)
}

// Links возвращает ссылки в порядке появления.
func Links(text string) []string {
	return values(text, KindLink)
}

func values(text string, kind Kind) []string {
	seen := make(map[string]bool)
	var out []string
	for span := range Annotate(text) {
		if span.Kind != kind || seen[span.Value] {
			continue
		}
		seen[span.Value] = true
		out = append(out, span.Value)
	}
	return out
}
