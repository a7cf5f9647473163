package extractor

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// ContentTags are the only elements kept from a page's content region.
var ContentTags = []string{
	"p", "h1", "h2", "h3", "h4", "h5", "h6",
	"li", "blockquote", "pre", "code", "table", "dl", "div",
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

type Extractor struct {
	allowed   string
	converter *md.Converter
}

func New() *Extractor {
	return &Extractor{
		allowed:   strings.Join(ContentTags, ", "),
		converter: md.NewConverter("", true, nil),
	}
}

// Extract keeps only allow-listed elements of the markup fragment and
// converts what is left to Markdown. Dropping an element drops its whole
// subtree.
func (e *Extractor) Extract(html string) (string, error) {
	filtered, err := e.Filter(html)
	if err != nil {
		return "", err
	}

	markdown, err := e.converter.ConvertString(filtered)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert markup")
	}

	return normalize(markdown), nil
}

// Filter removes every element whose tag is not in ContentTags.
func (e *Extractor) Filter(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse markup")
	}

	body := doc.Find("body")
	body.Find("*").Not(e.allowed).Remove()

	filtered, err := body.Html()
	if err != nil {
		return "", errors.Wrap(err, "failed to render markup")
	}
	return filtered, nil
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
