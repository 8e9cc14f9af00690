package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
)

type Parser interface {
	ParseProduct(html string, url string) (*models.ProductRecord, error)
	ParseListing(html string, baseURL string) ([]models.ListingItem, error)
}

// StorefrontParser parses rendered storefront markup into records.
type StorefrontParser struct{}

func NewStorefrontParser() *StorefrontParser {
	return &StorefrontParser{}
}

func (p *StorefrontParser) ParseProduct(html string, url string) (*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return ExtractProduct(doc, url), nil
}

func (p *StorefrontParser) ParseListing(html string, baseURL string) ([]models.ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return ExtractListing(doc, baseURL), nil
}

// strategy tries to read one field from a subtree. An empty result means the
// strategy did not match.
type strategy func(root *goquery.Selection) string

// chain evaluates strategies left to right; the first non-empty value wins.
type chain []strategy

func (c chain) first(root *goquery.Selection) string {
	for _, try := range c {
		if v := try(root); v != "" {
			return v
		}
	}
	return ""
}

// textAt reads the cleaned text of the first element matching selector.
func textAt(selector string) strategy {
	return func(root *goquery.Selection) string {
		el := root.Find(selector).First()
		if el.Length() == 0 {
			return ""
		}
		return nodeText(el)
	}
}

// metaAt reads the content attribute of the first element matching selector.
func metaAt(selector string) strategy {
	return func(root *goquery.Selection) string {
		content, ok := root.Find(selector).First().Attr("content")
		if !ok {
			return ""
		}
		return CleanText(content)
	}
}

func texts(selectors ...string) chain {
	c := make(chain, 0, len(selectors))
	for _, s := range selectors {
		c = append(c, textAt(s))
	}
	return c
}

// nodeText joins the text nodes below el with spaces so that adjacent inline
// elements do not run together. Script and style bodies are ignored.
func nodeText(el *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				b.WriteString(c.Text())
				b.WriteByte(' ')
			case "script", "style", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(el)
	return CleanText(b.String())
}

func appendUnique(list []string, seen map[string]struct{}, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		list = append(list, v)
	}
	return list
}
