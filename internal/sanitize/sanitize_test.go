package sanitize

import (
	"strings"
	"testing"
)

func TestHTML_Sanitize(t *testing.T) {
	h := NewHTML()

	cases := []struct {
		name    string
		in      string
		keep    []string
		dropped []string
	}{
		{
			name:    "script removed",
			in:      `<p>Ahoj<script>alert(1)</script></p>`,
			keep:    []string{"<p>", "Ahoj"},
			dropped: []string{"<script", "alert"},
		},
		{
			name:    "event handler removed",
			in:      `<img src="https://example.org/a.png" onerror="steal()">`,
			keep:    []string{"<img", "https://example.org/a.png"},
			dropped: []string{"onerror"},
		},
		{
			name:    "javascript link removed",
			in:      `<a href="javascript:alert(1)">klik</a>`,
			keep:    []string{"klik"},
			dropped: []string{"javascript:"},
		},
		{
			name: "formatting kept",
			in:   `<h2>Projekt</h2><ul><li><strong>hotovo</strong></li></ul>`,
			keep: []string{"<h2>", "<ul>", "<li>", "<strong>"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := h.Sanitize(tc.in)
			for _, s := range tc.keep {
				if !strings.Contains(out, s) {
					t.Fatalf("expected %q in %q", s, out)
				}
			}
			for _, s := range tc.dropped {
				if strings.Contains(out, s) {
					t.Fatalf("expected %q removed from %q", s, out)
				}
			}
		})
	}
}

func TestHTML_ExternalLinksNoFollow(t *testing.T) {
	out := NewHTML().Sanitize(`<a href="https://example.org">odkaz</a>`)
	if !strings.Contains(out, `rel="nofollow`) {
		t.Fatalf("expected nofollow on external link, got %q", out)
	}
}
