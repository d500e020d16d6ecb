package surface

import (
	"bufio"
	"html"
	"io"
)

// Radial gradients referenced by the globe's overlay discs.
const defs = `<defs>` +
	`<radialGradient cx="75%" cy="25%" id="globe_highlight">` +
	`<stop offset="5%" stop-color="#ffd" stop-opacity="0.3"/>` +
	`<stop offset="100%" stop-color="#ba9" stop-opacity="0.1"/>` +
	`</radialGradient>` +
	`<radialGradient cx="50%" cy="40%" id="globe_shading">` +
	`<stop offset="50%" stop-color="#9ab" stop-opacity="0"/>` +
	`<stop offset="100%" stop-color="#3e6184" stop-opacity="0.15"/>` +
	`</radialGradient>` +
	`<radialGradient cx="50%" cy="50%" id="drop_shadow">` +
	`<stop offset="20%" stop-color="#000" stop-opacity="0.25"/>` +
	`<stop offset="100%" stop-color="#000" stop-opacity="0"/>` +
	`</radialGradient>` +
	`</defs>`

// WriteSVG writes the whole surface as a standalone SVG document. Element
// IDs are emitted as data-id attributes so patches can address them.
func (s *Surface) WriteSVG(w io.Writer) error {
	bw := bufio.NewWriter(w)
	width, height := FormatFloat(s.Width), FormatFloat(s.Height)
	bw.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + width + `" height="` + height +
		`" viewBox="0 0 ` + width + ` ` + height + `">`)
	bw.WriteString(defs)
	for _, id := range s.root {
		s.writeElement(bw, s.elements[id])
	}
	bw.WriteString(`</svg>`)
	return bw.Flush()
}

func (s *Surface) writeElement(bw *bufio.Writer, e *Element) {
	bw.WriteString("<" + e.Tag + ` data-id="` + html.EscapeString(e.ID) + `"`)
	for _, name := range e.order {
		bw.WriteString(" " + name + `="` + html.EscapeString(e.attrs[name]) + `"`)
	}
	if len(e.children) == 0 && e.text == "" {
		bw.WriteString("/>")
		return
	}
	bw.WriteByte('>')
	bw.WriteString(html.EscapeString(e.text))
	for _, c := range e.children {
		s.writeElement(bw, s.elements[c])
	}
	bw.WriteString("</" + e.Tag + ">")
}
