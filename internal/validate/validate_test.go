package validate

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"a@b", false},
		{"a.b@c.co.uk", true},
		{"user@test.com", true},
		{"", false},
		{"no-at-sign.com", false},
		{"two@@signs.com", false},
		{"spa ce@x.com", false},
		{"a@b .com", false},
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.in); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidDomain(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"techcrunch.com", true},
		{"not a domain", false},
		{"a.b", true},
		{"news.bbc.co.uk", true},
		{"my-site.io", true},
		{"-bad.com", false},
		{"bad-.com", false},
		{"localhost", false},
		{"example.123", false},
		{"https://example.com", false},
		{"example.com/path", false},
	}
	for _, tt := range tests {
		if got := IsValidDomain(tt.in); got != tt.want {
			t.Errorf("IsValidDomain(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsEnglishSource(t *testing.T) {
	for _, d := range []string{"forbes.com", "bbc.co.uk", "abc.net.au", "Example.ORG"} {
		if !IsEnglishSource(d) {
			t.Errorf("IsEnglishSource(%q) = false, want true", d)
		}
	}
	for _, d := range []string{"lemonde.fr", "spiegel.de", "example.jp"} {
		if IsEnglishSource(d) {
			t.Errorf("IsEnglishSource(%q) = true, want false", d)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/path?x=1": "example.com",
		"example.com":                      "example.com",
		"  HTTP://Forbes.com  ":            "forbes.com",
		"www.theverge.com#top":             "theverge.com",
		"wired.com?ref=home":               "wired.com",
		"":                                 "",
	}
	for in, want := range tests {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanTopicText(t *testing.T) {
	tests := map[string]string{
		" Robotics!! ":         "robotics",
		"AI":                   "ai",
		"...climate   change;": "climate change",
		"  #fintech  ":         "fintech",
		"!!!":                  "",
	}
	for in, want := range tests {
		if got := CleanTopicText(in); got != want {
			t.Errorf("CleanTopicText(%q) = %q, want %q", in, got, want)
		}
	}
}
