package richtext

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestAnnotate_MentionAndLink(t *testing.T) {
	text := "hey @alice look at https://example.com today"
	spans := slices.Collect(Annotate(text))

	require.Equal(t, []Span{
		{Kind: KindText, Text: "hey "},
		{Kind: KindMention, Text: "@alice", Value: "alice", Href: "/users/alice"},
		{Kind: KindText, Text: " look at "},
		{Kind: KindLink, Text: "https://example.com", Value: "https://example.com", Href: "https://example.com"},
		{Kind: KindText, Text: " today"},
	}, spans)
	assert.Equal(t, text, join(spans))
}

func TestAnnotate_Restartable(t *testing.T) {
	seq := Annotate("#eco with @bob")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestAnnotate_EarlyStop(t *testing.T) {
	var seen []Span
	for span := range Annotate("a @bob b @carol c") {
		seen = append(seen, span)
		if span.Kind == KindMention {
			break
		}
	}
	require.Len(t, seen, 2)
	assert.Equal(t, "bob", seen[1].Value)
}

func TestAnnotate_EdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		kinds []Kind
	}{
		{"email stays text", "mail bob@example.com", []Kind{KindText}},
		{"short mention is text", "@ab hi", []Kind{KindText}},
		{"numeric hashtag is text", "issue #42", []Kind{KindText}},
		{"trailing punctuation", "see https://example.com/a.", []Kind{KindText, KindLink, KindText}},
		{"url in parens", "(https://example.com)", []Kind{KindText, KindLink, KindText}},
		{"unicode hashtag", "#экология", []Kind{KindHashtag}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := slices.Collect(Annotate(tt.text))
			var kinds []Kind
			for _, s := range spans {
				kinds = append(kinds, s.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
			assert.Equal(t, tt.text, join(spans))
		})
	}
}

func TestHashtagsAndMentions(t *testing.T) {
	text := "#ZeroWaste and #zerowaste with @Alice, @alice and @bob_99 #compost"
	assert.Equal(t, []string{"zerowaste", "compost"}, Hashtags(text))
	assert.Equal(t, []string{"alice", "bob_99"}, Mentions(text))
	assert.Nil(t, Links(text))
	assert.Equal(t, []string{"https://a.org/x"}, Links("go https://a.org/x!"))
}
