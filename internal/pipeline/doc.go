// Package pipeline implements the Markdown front end of the Markdown-to-PDF
// conversion.
//
// This package handles the stages that run before the markup bridge:
//   - Markdown preprocessing (line normalization, highlight syntax)
//   - Markdown to HTML conversion via Goldmark
//   - Loading local images referenced by the HTML into a side table
//
// Layout and PDF serialization are handled by the root docconv package,
// which feeds the resulting HTML and image table to internal/markup.
package pipeline
