package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/storefront-scraper/internal/models"
	"golang.org/x/net/html"
)

var (
	titleChain = chain{
		textAt("h1"),
		textAt("[data-testid='product-title']"),
		textAt(".product-title"),
		metaAt("meta[property='og:title']"),
		metaAt("meta[name='title']"),
	}

	brandChain = texts("[itemprop='brand']", ".product-brand", "[data-testid='brand']")
	modelChain = texts("[itemprop='model']", ".product-model", "[data-testid='model']")
	skuChain   = append(texts("[itemprop='sku']", ".product-sku", "[data-testid='sku']"),
		metaAt("meta[itemprop='sku']"))

	shortDescriptionChain = chain{
		textAt("[data-testid='short-description']"),
		textAt(".product-short-description"),
		metaAt("meta[name='description']"),
	}
	fullDescriptionChain = texts("[data-testid='description']", ".product-description", "#descripcion")

	availabilityChain = texts("[data-testid='availability']", ".availability")
	ratingChain       = texts("[data-testid='rating']", ".rating")
	reviewsChain      = texts("[data-testid='reviews']", ".reviews")
	sellerChain       = texts("[data-testid='seller']", ".seller")
	breadcrumbChain   = texts(".breadcrumb", "[data-testid='breadcrumb']")

	promoChain = texts(".price--promo", ".price-promo", "[data-testid='price-promo']")
)

// priceCandidateSelectors are read in order; each contributes at most one raw
// candidate. Meta tags contribute their content attribute.
var priceCandidateSelectors = []string{
	"[data-testid='price']",
	".price",
	".product-price",
	"meta[property='product:price:amount']",
}

// ExtractProduct builds a product record from a rendered detail page. Fields
// that cannot be found keep their defaults.
func ExtractProduct(doc *goquery.Document, url string) *models.ProductRecord {
	root := doc.Selection
	record := models.NewProductRecord(url)

	record.Title = titleChain.first(root)

	prices := extractPrices(root)
	record.PriceRegular = prices.regular
	record.PricePromo = prices.promo
	record.PromoLowConfidence = prices.lowConfidence

	record.Brand = brandChain.first(root)
	record.Model = modelChain.first(root)
	record.SKU = skuChain.first(root)

	record.DescriptionShort = Truncate(shortDescriptionChain.first(root), models.MaxShortDescription)
	record.DescriptionFull = Truncate(fullDescriptionChain.first(root), models.MaxFullDescription)

	record.Images = extractImages(root)

	if availability := availabilityChain.first(root); availability != "" {
		record.Availability = availability
		record.StockText = availability
	}
	record.Rating = ratingChain.first(root)
	record.ReviewsCount = digitsOnly(reviewsChain.first(root))
	record.Seller = sellerChain.first(root)
	record.Category = breadcrumbChain.first(root)

	return record
}

type priceResult struct {
	regular       *float64
	promo         *float64
	lowConfidence bool
}

// extractPrices is shared by detail pages and listing cards; root bounds the
// search.
func extractPrices(root *goquery.Selection) priceResult {
	var (
		candidates []string
		nodes      []*html.Node
	)
	for _, selector := range priceCandidateSelectors {
		el := root.Find(selector).First()
		if el.Length() == 0 || containsNode(nodes, el.Get(0)) {
			continue
		}
		nodes = append(nodes, el.Get(0))
		if goquery.NodeName(el) == "meta" {
			content, _ := el.Attr("content")
			candidates = append(candidates, content)
		} else {
			candidates = append(candidates, nodeText(el))
		}
	}

	var res priceResult
	if len(candidates) > 0 {
		res.regular = ParsePrice(candidates[0])
	}
	if text := promoChain.first(root); text != "" {
		res.promo = ParsePrice(text)
	}
	if res.promo == nil {
		res.promo, res.lowConfidence = promoFromCandidates(candidates)
	}
	return res
}

// promoFromCandidates reads the second collected price candidate as the promo
// price. The markup gives no guarantee that it is a discount, so any value
// found this way is reported as low confidence.
func promoFromCandidates(candidates []string) (*float64, bool) {
	if len(candidates) < 2 {
		return nil, false
	}
	promo := ParsePrice(candidates[1])
	return promo, promo != nil
}

func containsNode(nodes []*html.Node, n *html.Node) bool {
	for _, existing := range nodes {
		if existing == n {
			return true
		}
	}
	return false
}

func extractImages(root *goquery.Selection) []string {
	seen := make(map[string]struct{})
	images := make([]string, 0)

	root.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src")
		}
		if strings.HasPrefix(src, "http") {
			images = appendUnique(images, seen, src)
		}
	})

	if len(images) > 0 {
		return images
	}

	if product := findJSONLD(root, "Product"); product != nil {
		images = appendUnique(images, seen, stringList(product["image"])...)
	}
	return images
}
