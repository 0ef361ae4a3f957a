package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "only spaces", in: " \t\n ", want: ""},
		{name: "html tags", in: "<p>What is <b>2+2</b>?</p>", want: "what is 2+2 ?"},
		{name: "tags between words", in: "Hello<br>World", want: "hello world"},
		{name: "tag with attributes", in: `<span class="q" data-id=7>Who</span> won?<br />`, want: "who won?"},
		{name: "comparison operators kept", in: "Is 3 < 5 and 7 > 2?", want: "is 3 < 5 and 7 > 2?"},
		{name: "tight comparison kept", in: "Which is larger: x<y or y>z?", want: "which is larger: x<y or y>z?"},
		{name: "element-like comparison kept", in: "Is a<b or c>d?", want: "is a<b or c>d?"},
		{name: "unknown element kept", in: "Is <bold> a tag?", want: "is <bold> a tag?"},
		{name: "ascii lowercase only", in: "ÉCOLE Paris", want: "École paris"},
		{name: "whitespace collapse", in: "  a \t\t b\n\nc  ", want: "a b c"},
		{name: "persian digits", in: "سال ۱۴۰۲", want: "سال 1402"},
		{name: "arabic-indic digits", in: "٤٥", want: "45"},
		{name: "arabic yeh to persian", in: "ايران", want: "ایران"},
		{name: "alef maksura", in: "موسى", want: "موسی"},
		{name: "arabic kaf", in: "كتاب", want: "کتاب"},
		{name: "emoji dropped", in: "Capital 🏛️ of 🇫🇷 France 😀?", want: "capital of france ?"},
		{name: "zwj sequence dropped", in: "team 👨‍👩‍👧 quiz", want: "team quiz"},
		{name: "nfkc fullwidth", in: "ＡＢＣ１２３", want: "abc123"},
		{name: "nfkc ligature", in: "ﬁnal", want: "final"},
		{name: "no-break space", in: "a  b", want: "a b"},
		{name: "mixed", in: "  <b>Hello</b>   WORLD ۱۲۳ ٤٥ 😀 كتاب ي  ", want: "hello world 123 45 کتاب ی"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"پایتخت ایران کجاست؟",
		"  پایتخت  ايران   كجاست ؟ ",
		"<<a>b>nested</b>",
		"<div><span>Which <i>planet</i></span> is red?</div>",
		"fullwidth ＜b＞tag＜/b＞",
		"e<b>́</b>accent",
		"x😀́y",
		"Ⅻ ㎏ ½",
		"‌‌نیم‌فاصله",
		"MiXeD CaSe 123 ۴۵۶",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeGlyphVariantsConverge(t *testing.T) {
	arabic := "علي كجاست"
	persian := "علی کجاست"
	assert.Equal(t, Normalize(persian), Normalize(arabic))
}
