package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/models"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractProductMinimalPage(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>Widget</h1><span class="price">$1,200.00</span></body></html>`)

	record := ExtractProduct(doc, "https://site.example/p/widget")

	assert.Equal(t, "Widget", record.Title)
	require.NotNil(t, record.PriceRegular)
	assert.InDelta(t, 1200.0, *record.PriceRegular, 0.0001)
	assert.Nil(t, record.PricePromo)
	assert.False(t, record.PromoLowConfidence)
	assert.Equal(t, models.DefaultCurrency, record.Currency)
	assert.Equal(t, models.DefaultAvailability, record.Availability)
	assert.Equal(t, "https://site.example/p/widget", record.ProductURL)
	assert.NotNil(t, record.Images)
	assert.Empty(t, record.Images)
}

func TestExtractProductEmptyDocumentKeepsDefaults(t *testing.T) {
	record := ExtractProduct(mustDoc(t, `<html><body></body></html>`), "u")

	assert.Equal(t, "", record.Title)
	assert.Nil(t, record.PriceRegular)
	assert.Nil(t, record.PricePromo)
	assert.Equal(t, "unknown", record.Availability)
	assert.Equal(t, "", record.StockText)
	assert.Equal(t, "", record.ReviewsCount)
	assert.NotNil(t, record.Images)
}

func TestExtractProductFields(t *testing.T) {
	html := `<html><head>
		<meta name="description" content="Sala  moderna de tres piezas">
		<meta itemprop="sku" content="SKU-7781">
	</head><body>
		<nav class="breadcrumb">Inicio / Muebles / Salas</nav>
		<h1>Sala <span>Moderna</span></h1>
		<div itemprop="brand"><span>Acme</span> <span>Home</span></div>
		<span class="product-model">SL-300</span>
		<div data-testid="description">Tapizado en tela.
			Incluye cojines.</div>
		<div data-testid="availability">En existencia</div>
		<div class="rating">4.5 de 5</div>
		<div class="reviews">(1,234 reseñas)</div>
		<div class="seller">Vendido por Coppel</div>
	</body></html>`

	record := ExtractProduct(mustDoc(t, html), "https://site.example/p/sala")

	assert.Equal(t, "Sala Moderna", record.Title)
	assert.Equal(t, "Acme Home", record.Brand)
	assert.Equal(t, "SL-300", record.Model)
	assert.Equal(t, "SKU-7781", record.SKU)
	assert.Equal(t, "Sala moderna de tres piezas", record.DescriptionShort)
	assert.Equal(t, "Tapizado en tela. Incluye cojines.", record.DescriptionFull)
	assert.Equal(t, "En existencia", record.Availability)
	assert.Equal(t, "En existencia", record.StockText)
	assert.Equal(t, "4.5 de 5", record.Rating)
	assert.Equal(t, "1234", record.ReviewsCount)
	assert.Equal(t, "Vendido por Coppel", record.Seller)
	assert.Equal(t, "Inicio / Muebles / Salas", record.Category)
}

func TestExtractProductTitleFallsBackToMeta(t *testing.T) {
	doc := mustDoc(t, `<html><head><meta property="og:title" content="  Lavadora   LG 20kg "></head><body><h1>  </h1></body></html>`)

	assert.Equal(t, "Lavadora LG 20kg", ExtractProduct(doc, "").Title)
}

func TestExtractProductDescriptionLimits(t *testing.T) {
	short := strings.Repeat("a", 2500)
	full := strings.Repeat("b", 9000)
	doc := mustDoc(t, `<div class="product-short-description">`+short+`</div><div class="product-description">`+full+`</div>`)

	record := ExtractProduct(doc, "")

	assert.Len(t, record.DescriptionShort, models.MaxShortDescription)
	assert.Len(t, record.DescriptionFull, models.MaxFullDescription)
}

func TestExtractPrices(t *testing.T) {
	tests := []struct {
		name          string
		html          string
		regular       *float64
		promo         *float64
		lowConfidence bool
	}{
		{
			name:    "promo selector wins",
			html:    `<span data-testid="price">$1,500.00</span><span class="price-promo">$1,199.00</span>`,
			regular: ptr(1500),
			promo:   ptr(1199),
		},
		{
			name:          "second candidate is low confidence promo",
			html:          `<span data-testid="price">$1,500.00</span><span class="product-price">$1,299.00</span>`,
			regular:       ptr(1500),
			promo:         ptr(1299),
			lowConfidence: true,
		},
		{
			name:    "same element matched twice is one candidate",
			html:    `<span class="price product-price">$10.00</span>`,
			regular: ptr(10),
		},
		{
			name:    "meta amount",
			html:    `<meta property="product:price:amount" content="2499.00">`,
			regular: ptr(2499),
		},
		{
			name: "no price",
			html: `<p>Precio no disponible</p>`,
		},
		{
			name:  "unparseable first candidate",
			html:  `<span class="price">Consultar</span><span class="price--promo">$899</span>`,
			promo: ptr(899),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extractPrices(mustDoc(t, tt.html).Selection)
			assertPrice(t, tt.regular, res.regular)
			assertPrice(t, tt.promo, res.promo)
			assert.Equal(t, tt.lowConfidence, res.lowConfidence)
		})
	}
}

func TestExtractImages(t *testing.T) {
	t.Run("dom images deduplicated in order", func(t *testing.T) {
		doc := mustDoc(t, `
			<img src="https://cdn.example/1.jpg">
			<img src="" data-src="https://cdn.example/2.jpg">
			<img src="https://cdn.example/1.jpg">
			<img src="/static/logo.svg">`)

		assert.Equal(t, []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}, extractImages(doc.Selection))
	})

	t.Run("structured data list", func(t *testing.T) {
		doc := mustDoc(t, `<script type="application/ld+json">
			{"@context":"https://schema.org","@type":"Product","image":["https://x.example/a.jpg","https://x.example/b.jpg","https://x.example/a.jpg"]}
		</script><img src="/relative.jpg">`)

		assert.Equal(t, []string{"https://x.example/a.jpg", "https://x.example/b.jpg"}, extractImages(doc.Selection))
	})

	t.Run("structured data single string inside array", func(t *testing.T) {
		doc := mustDoc(t, `<script type="application/ld+json">not json</script>
			<script type="application/ld+json">[{"@type":"BreadcrumbList"},{"@type":"Product","image":"https://x.example/only.jpg"}]</script>`)

		assert.Equal(t, []string{"https://x.example/only.jpg"}, extractImages(doc.Selection))
	})

	t.Run("nothing found", func(t *testing.T) {
		images := extractImages(mustDoc(t, `<p>sin imagen</p>`).Selection)
		assert.NotNil(t, images)
		assert.Empty(t, images)
	})
}

func TestStorefrontParserParseProduct(t *testing.T) {
	p := NewStorefrontParser()

	record, err := p.ParseProduct(`<h1>Widget</h1>`, "https://site.example/p/1")

	require.NoError(t, err)
	assert.Equal(t, "Widget", record.Title)
}

func ptr(v float64) *float64 {
	return &v
}

func assertPrice(t *testing.T, expected, actual *float64) {
	t.Helper()
	if expected == nil {
		assert.Nil(t, actual)
		return
	}
	require.NotNil(t, actual)
	assert.InDelta(t, *expected, *actual, 0.0001)
}
