package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported citation format")

// Formatos de citação suportados, na ordem em que são listados.
var CitationFormats = []string{"bibtex", "apa", "chicago", "ieee", "mla", "harvard"}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func yearOr(y int, def string) string {
	if y == 0 {
		return def
	}
	return strconv.Itoa(y)
}

// Cite formata a referência do paper no formato pedido.
func Cite(p *Paper, format string) (string, error) {
	authors := strings.Join(p.Authors, ", ")
	journal := orDefault(p.Journal, "Unknown Journal")
	year := yearOr(p.Year, "n.d.")

	switch strings.ToLower(format) {
	case "bibtex":
		key := strings.NewReplacer("/", "_", ":", "_").Replace(p.ID)
		return fmt.Sprintf("@article{%s,\n  title={%s},\n  author={%s},\n  journal={%s},\n  year={%s},\n  doi={%s}\n}",
			key, p.Title, authors, orDefault(p.Journal, "Unknown"), yearOr(p.Year, "Unknown"), orDefault(p.DOI, "Unknown")), nil
	case "apa":
		return fmt.Sprintf("%s (%s). %s. %s.", authors, year, p.Title, journal), nil
	case "chicago":
		return fmt.Sprintf("%s. \"%s.\" %s %s.", authors, p.Title, journal, year), nil
	case "ieee":
		return fmt.Sprintf("%s, \"%s,\" %s, %s.", authors, p.Title, journal, year), nil
	case "mla":
		return fmt.Sprintf("%s. \"%s.\" %s, %s.", authors, p.Title, journal, year), nil
	case "harvard":
		return fmt.Sprintf("%s %s, '%s', %s.", authors, year, p.Title, journal), nil
	}
	return "", fmt.Errorf("%w %q, available: %s", ErrUnsupportedFormat, format, strings.Join(CitationFormats, ", "))
}
