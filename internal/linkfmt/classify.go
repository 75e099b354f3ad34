package linkfmt

import (
	"path"
	"regexp"
	"strings"
)

// Decision is the outcome of classifying one URL match.
type Decision int

const (
	// RewriteInline replaces the URL in place with a rendered link.
	RewriteInline Decision = iota
	// Skip leaves the URL untouched.
	Skip
	// RewriteAsChild leaves the text untouched and adds the rendered link as
	// a child block.
	RewriteAsChild
)

func (d Decision) String() string {
	switch d {
	case RewriteInline:
		return "inline"
	case Skip:
		return "skip"
	case RewriteAsChild:
		return "child"
	}
	return "unknown"
}

// videoCommand is the only embed command whose URL gets a child link.
const videoCommand = "video"

var (
	commandRe = regexp.MustCompile(`(?s)\{\{\s*(\w*).*?\}\}`)

	imageExts = map[string]struct{}{
		".gif": {}, ".jpg": {}, ".jpeg": {}, ".tif": {}, ".tiff": {},
		".png": {}, ".webp": {}, ".bmp": {}, ".tga": {}, ".psd": {}, ".ai": {},
	}
)

type span struct{ start, end int }

func (s span) contains(i int) bool { return s.start < i && i < s.end }

type command struct {
	span
	name string
}

// Classifier decides what to do with each URL of one text snapshot. Code
// spans and commands are located once, up front.
type Classifier struct {
	text     string
	spec     FormatSpec
	code     []span
	commands []command
}

// NewClassifier scans text for code spans and embed commands.
func NewClassifier(text string, spec FormatSpec) *Classifier {
	c := &Classifier{text: text, spec: spec, code: codeSpans(text)}
	for _, loc := range commandRe.FindAllStringSubmatchIndex(text, -1) {
		c.commands = append(c.commands, command{
			span: span{start: loc[0], end: loc[1]},
			name: text[loc[2]:loc[3]],
		})
	}
	return c
}

// Classify applies the eligibility rules in order; the first one that
// applies wins. The returned match differs from m only for video embeds,
// where a captured trailing "}}" is trimmed off.
func (c *Classifier) Classify(m Match) (Decision, Match) {
	if c.alreadyFormatted(m) {
		return Skip, m
	}
	if IsImage(m.URL) {
		return Skip, m
	}
	for _, s := range c.code {
		if s.contains(m.Start) {
			return Skip, m
		}
	}
	for _, cmd := range c.commands {
		if !cmd.contains(m.Start) {
			continue
		}
		if cmd.name != videoCommand {
			return Skip, m
		}
		m = m.trimmed("}}")
		if c.alreadyFormatted(m) {
			return Skip, m
		}
		return RewriteAsChild, m
	}
	return RewriteInline, m
}

func (c *Classifier) alreadyFormatted(m Match) bool {
	if m.Start < 2 || m.Start > len(c.text) {
		return false
	}
	return c.text[m.Start-2:m.Start] == c.spec.LinkPrefix
}

// IsImage reports whether the path of rawURL ends in a known image
// extension. Query and fragment are ignored, and so is the host, so
// "https://open.ai" is not an image.
func IsImage(rawURL string) bool {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
	}
	slash := strings.IndexByte(p, '/')
	if slash < 0 {
		return false
	}
	_, ok := imageExts[strings.ToLower(path.Ext(p[slash:]))]
	return ok
}

// codeSpans returns the byte ranges enclosed by matching backtick runs.
// Escaped backticks neither open nor close a span; a run without a matching
// closer is plain text.
func codeSpans(text string) []span {
	var out []span
	i := 0
	for i < len(text) {
		if text[i] != '`' || isEscapedBacktick(text, i) {
			i++
			continue
		}
		n := backtickRun(text, i)
		closing := findClosingBackticks(text, i+n, n)
		if closing < 0 {
			i += n
			continue
		}
		out = append(out, span{start: i, end: closing + n})
		i = closing + n
	}
	return out
}

// isEscapedBacktick reports whether the backtick at i is preceded by an odd
// number of backslashes.
func isEscapedBacktick(text string, i int) bool {
	backslashes := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		backslashes++
	}
	return backslashes%2 == 1
}

func backtickRun(text string, i int) int {
	n := 0
	for i+n < len(text) && text[i+n] == '`' {
		n++
	}
	return n
}

func findClosingBackticks(text string, from, n int) int {
	i := from
	for i < len(text) {
		if text[i] != '`' || isEscapedBacktick(text, i) {
			i++
			continue
		}
		run := backtickRun(text, i)
		if run == n {
			return i
		}
		i += run
	}
	return -1
}
