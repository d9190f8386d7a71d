package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/shopkit/catq/internal/catalog"
)

// render writes v to w in the requested format. Table rendering covers the
// record shapes the commands produce; unknown shapes fall back to JSON.
func render(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(w).Encode(v)
	case "", "table":
		return renderTable(w, v)
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func renderTable(w io.Writer, v any) error {
	switch t := v.(type) {
	case []catalog.ProductSummary:
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCATEGORY\tIN STOCK")
		for _, p := range t {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\n", p.ID, p.Name, formatPrice(p.PriceCents), p.Category, p.InStock)
		}
		return tw.Flush()
	case *catalog.Product:
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "ID\t%d\n", t.ID)
		fmt.Fprintf(tw, "Name\t%s\n", t.Name)
		fmt.Fprintf(tw, "Price\t%s\n", formatPrice(t.PriceCents))
		fmt.Fprintf(tw, "Category\t%s\n", t.Category)
		fmt.Fprintf(tw, "In stock\t%v\n", t.InStock)
		if t.Description != "" {
			fmt.Fprintf(tw, "Description\t%s\n", t.Description)
		}
		if len(t.GalleryURLs) > 0 {
			fmt.Fprintf(tw, "Gallery\t%s\n", strings.Join(t.GalleryURLs, ", "))
		}
		return tw.Flush()
	case []string:
		for _, s := range t {
			fmt.Fprintln(w, s)
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
