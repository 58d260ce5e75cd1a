package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "no markup &amp; entities", "no markup & entities"},
		{"paragraphs", "<p>one</p><p>two <b>bold</b></p>", "one\ntwo bold"},
		{"list", "<ul><li>a</li><li>b</li></ul>", "- a\n- b"},
		{"script dropped", "<p>keep</p><script>var x = 1;</script><style>p{}</style>", "keep"},
		{"line breaks", "first<br/>second", "first\nsecond"},
		{"macro text kept", `<ac:structured-macro ac:name="note"><ac:rich-text-body><p>inside</p></ac:rich-text-body></ac:structured-macro>`, "inside"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}
