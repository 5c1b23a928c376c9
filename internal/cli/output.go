package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printErrors writes validation messages one per line, fields sorted.
func printErrors(w io.Writer, errs types.Errors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, msg := range errs[f] {
			fmt.Fprintf(w, "  %-9s %s\n", f+":", msg)
		}
	}
}

// cellSymbol is the one-character calendar glyph of a rendered day.
func cellSymbol(c types.CellRender) string {
	switch {
	case strings.Contains(c.Classes, "errors"):
		return "!"
	case strings.Contains(c.Classes, "selected"):
		return "*"
	case c.Enabled:
		return "+"
	case c.Classes != "":
		return "-"
	default:
		return "."
	}
}
