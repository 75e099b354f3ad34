package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/linktitle/internal/linkfmt"
)

const formatsURI = "linktitle://formats"

// FormatsGuide describes how bare URLs are rewritten in each supported
// syntax. It is served as a resource and by the get_formats tool.
func FormatsGuide() string {
	var b strings.Builder
	b.WriteString("# Link formats\n\n")
	b.WriteString("Bare URLs in a block are replaced by a link titled after the page they point to.\n\n")
	for _, name := range linkfmt.FormatNames() {
		spec, _ := linkfmt.LookupFormat(name)
		fmt.Fprintf(&b, "- `%s`: `%s`\n", name, spec.Render("Title", "https://example.com"))
	}
	b.WriteString(`
## Left alone

- URLs already inside a link of the active syntax.
- Image URLs (gif, jpg, jpeg, tif, tiff, png, webp, bmp, tga, psd, ai).
- URLs inside inline code.
- URLs inside ` + "`{{command ...}}`" + ` embeds, except ` + "`{{video URL}}`" + `,
  which keeps the embed and gets the titled link as a child block.
- URLs whose title cannot be resolved.
`)
	return b.String()
}
