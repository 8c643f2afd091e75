package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Bubble Wash", "Bubble Wash"},
		{"ampersand", "Suds & Co", "Suds & Co"},
		{"entity", "Suds &amp; Co", "Suds & Co"},
		{"tags", "<b>Suds</b> <i>& Co</i>", "Suds & Co"},
		{"script", "Wash<script>alert('x')</script>", "Wash"},
		{"attributes", `<a href="javascript:alert(1)" onclick="x()">Wash</a>`, "Wash"},
		{"whitespace", "  Wash \n", "Wash"},
		{"less than", "a < b", "a < b"},
		{"apostrophe", "O'Brien", "O'Brien"},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"encoded tag", "&lt;b&gt;Wash&lt;/b&gt;", "Wash"},
		{"double encoded tag", "&amp;lt;b&amp;gt;Wash&amp;lt;/b&amp;gt;", "Wash"},
		{"numeric entities", "&#60;img src=x onerror=alert(1)&#62;Dry", "Dry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainTextPtr(t *testing.T) {
	if htmlsanitize.PlainTextPtr(nil) != nil {
		t.Error("nil should stay nil")
	}
	s := "<em>hi</em>"
	if got := htmlsanitize.PlainTextPtr(&s); got == nil || *got != "hi" {
		t.Errorf("got %v, want hi", got)
	}
}
