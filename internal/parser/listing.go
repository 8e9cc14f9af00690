package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
)

// cardSelectors are tried in order. Only the first pattern with at least one
// match is used so that differing card markups on one page are never mixed.
var cardSelectors = []string{
	"[data-testid*='product-card']",
	".product-card",
	".product-item",
	"li.product",
}

// ExtractListing returns the items of a listing page: structured-data
// entries first, followed by DOM cards.
func ExtractListing(doc *goquery.Document, baseURL string) []models.ListingItem {
	root := doc.Selection
	items := make([]models.ListingItem, 0)

	if list := findJSONLD(root, "ItemList"); list != nil {
		for _, entry := range itemListEntries(list) {
			items = append(items, listingFromJSONLD(entry))
		}
	}

	category := breadcrumbChain.first(root)
	for _, selector := range cardSelectors {
		cards := root.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		cards.Each(func(_ int, card *goquery.Selection) {
			item := listingFromCard(card)
			item.Category = category
			items = append(items, item)
		})
		break
	}

	for i := range items {
		items[i].ProductURL = ResolveURL(baseURL, items[i].ProductURL)
	}
	return items
}

func listingFromJSONLD(entry map[string]any) models.ListingItem {
	item := models.NewListingItem()
	item.Title = CleanText(stringField(entry, "name"))
	item.ProductURL = strings.TrimSpace(stringField(entry, "url"))
	if offers := objectField(entry, "offers"); offers != nil {
		item.PriceRegular = ParsePrice(stringField(offers, "price"))
		if currency := stringField(offers, "priceCurrency"); currency != "" {
			item.Currency = currency
		}
	}
	return item
}

func listingFromCard(card *goquery.Selection) models.ListingItem {
	item := models.NewListingItem()

	link := card.Find("a[href]").First()
	if heading := card.Find("h2, h3").First(); heading.Length() > 0 {
		item.Title = nodeText(heading)
	}
	if item.Title == "" && link.Length() > 0 {
		item.Title = nodeText(link)
	}
	if href, ok := link.Attr("href"); ok {
		item.ProductURL = strings.TrimSpace(href)
	}

	prices := extractPrices(card)
	item.PriceRegular = prices.regular
	item.PricePromo = prices.promo
	item.PromoLowConfidence = prices.lowConfidence
	return item
}

// ResolveURL makes a root-relative product path absolute against the origin
// of base. Absolute and empty values are returned unchanged. When base has
// no parseable origin the path is appended to base with its trailing slashes
// removed.
func ResolveURL(base, ref string) string {
	if !strings.HasPrefix(ref, "/") {
		return ref
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(base, "/") + ref
	}
	if strings.HasPrefix(ref, "//") {
		return u.Scheme + ":" + ref
	}
	return u.Scheme + "://" + u.Host + ref
}
