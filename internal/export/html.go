// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/chatdeck/internal/deck"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders a deck as a self-contained HTML slideshow. Slides keep
// the deck's aspect ratio and text boxes are placed as percentages of the
// canvas, so the page scales with the browser window.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{options: opts.withDefaults()}
}

// Export converts a deck to HTML.
func (e *HTMLExporter) Export(d *deck.Deck) ([]byte, error) {
	if d == nil {
		return nil, ErrNilDeck
	}
	if d.Canvas.Width <= 0 || d.Canvas.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas %gx%g", d.Canvas.Width, d.Canvas.Height)
	}

	title := deck.DefaultTitleHeading
	if len(d.Slides) > 0 && d.Slides[0].Heading != "" {
		title = d.Slides[0].Heading
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(title)))
	if e.options.IncludeMetadata {
		sb.WriteString("    <meta name=\"generator\" content=\"chatdeck\">\n")
		sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", e.options.now().Format(time.RFC3339)))
	}
	sb.WriteString(e.getCSS(d.Canvas))
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", html.EscapeString(e.options.Theme)))

	sb.WriteString("    <main class=\"deck\">\n")
	for i, s := range d.Slides {
		sb.WriteString(e.renderSlide(i+1, len(d.Slides), s, d.Canvas))
	}
	sb.WriteString("    </main>\n")

	if e.options.IncludeMetadata {
		sb.WriteString("    <footer class=\"footer\">\n")
		sb.WriteString(fmt.Sprintf("        <p>Generated by <strong>chatdeck</strong> on %s</p>\n",
			formatTimestamp(e.options.now())))
		sb.WriteString("    </footer>\n")
	}

	sb.WriteString(e.getScript())
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderSlide(n, total int, s deck.Slide, c deck.Canvas) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("        <section class=\"slide %s-slide\" id=\"slide-%d\" style=\"background:#%s\">\n",
		s.Kind, n, html.EscapeString(s.Background)))
	sb.WriteString(renderBox("h2", "heading", s.Heading, s.HeadingBox, c))
	if s.HasBody() {
		sb.WriteString(renderBox("div", "body", s.Body, s.BodyBox, c))
	}
	sb.WriteString(fmt.Sprintf("            <span class=\"slide-number\">%d / %d</span>\n", n, total))
	sb.WriteString("        </section>\n")

	return sb.String()
}

func renderBox(tag, class, text string, b deck.TextBox, c deck.Canvas) string {
	weight := "normal"
	if b.Bold {
		weight = "bold"
	}
	style := fmt.Sprintf("left:%.2f%%;top:%.2f%%;width:%.2f%%;height:%.2f%%;"+
		"font-size:calc(var(--slide-width) * %.4f);font-weight:%s;color:#%s;text-align:%s",
		100*b.X/c.Width, 100*b.Y/c.Height, 100*b.W/c.Width, 100*b.H/c.Height,
		// points to a fraction of the slide width: 72pt per inch
		float64(b.FontSize)/72/c.Width, weight, html.EscapeString(b.Color), b.Align)

	body := strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
	return fmt.Sprintf("            <%s class=\"box %s\" style=\"%s\">%s</%s>\n", tag, class, style, body, tag)
}

// =============================================================================
// EMBEDDED CSS AND SCRIPT
// =============================================================================

func (e *HTMLExporter) getCSS(c deck.Canvas) string {
	return fmt.Sprintf(`    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --slide-width: min(90vw, calc(85vh * %[1]g));
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --text-muted: #565f89;
            --shadow: rgba(0, 0, 0, 0.6);
        }

        .light-theme {
            --bg-primary: #e1e4e8;
            --text-muted: #6a737d;
            --shadow: rgba(0, 0, 0, 0.2);
        }

        body {
            font-family: var(--font-sans);
            background: var(--bg-primary);
            padding: 2rem 0;
        }

        .deck {
            display: flex;
            flex-direction: column;
            align-items: center;
            gap: 2rem;
        }

        .slide {
            position: relative;
            width: var(--slide-width);
            aspect-ratio: %[2]g / %[3]g;
            box-shadow: 0 4px 16px var(--shadow);
            overflow: hidden;
        }

        .box {
            position: absolute;
            overflow: hidden;
            line-height: 1.25;
            white-space: normal;
            overflow-wrap: anywhere;
        }

        .slide-number {
            position: absolute;
            right: 1%%;
            bottom: 1%%;
            font-size: 0.75rem;
            color: var(--text-muted);
        }

        .footer {
            text-align: center;
            margin-top: 2rem;
            color: var(--text-muted);
            font-size: 0.85rem;
        }

        @media print {
            body { padding: 0; background: none; }
            .deck { gap: 0; }
            .slide { box-shadow: none; page-break-after: always; }
            .footer { display: none; }
        }
    </style>
`, c.Width/c.Height, c.Width, c.Height)
}

// getScript adds arrow-key navigation between slides and a theme toggle (t).
func (e *HTMLExporter) getScript() string {
	return `    <script>
        (function () {
            var slides = document.querySelectorAll('.slide');
            var current = 0;
            function show(i) {
                if (i < 0 || i >= slides.length) return;
                current = i;
                slides[i].scrollIntoView({ behavior: 'smooth', block: 'center' });
            }
            document.addEventListener('keydown', function (e) {
                if (e.key === 'ArrowRight' || e.key === 'PageDown' || e.key === ' ') { e.preventDefault(); show(current + 1); }
                if (e.key === 'ArrowLeft' || e.key === 'PageUp') { e.preventDefault(); show(current - 1); }
                if (e.key === 't') {
                    var b = document.body;
                    b.className = b.className === 'dark-theme' ? 'light-theme' : 'dark-theme';
                }
            });
        })();
    </script>
`
}
