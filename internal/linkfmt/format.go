package linkfmt

import "strings"

// Preferred-format names as stored by the host.
const (
	FormatMarkdown = "markdown"
	FormatOrg      = "org"
)

// FormatSpec describes one inline-link syntax.
type FormatSpec struct {
	Name string
	// LinkPrefix is the two-byte sequence that sits right before the URL of
	// an already formatted link.
	LinkPrefix string
	Render     func(title, url string) string
}

// Markdown renders [title](url).
var Markdown = FormatSpec{
	Name:       FormatMarkdown,
	LinkPrefix: "](",
	Render: func(title, url string) string {
		return "[" + title + "](" + url + ")"
	},
}

// Org renders [[url][title]].
var Org = FormatSpec{
	Name:       FormatOrg,
	LinkPrefix: "[[",
	Render: func(title, url string) string {
		return "[[" + url + "][" + title + "]]"
	},
}

// LookupFormat returns the spec for a preferred-format name.
func LookupFormat(name string) (FormatSpec, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FormatMarkdown:
		return Markdown, true
	case FormatOrg:
		return Org, true
	}
	return FormatSpec{}, false
}

// FormatNames lists the supported preferred-format names.
func FormatNames() []string {
	return []string{FormatMarkdown, FormatOrg}
}
