package models

import (
	"math"
	"time"
)

const (
	DefaultCurrency     = "MXN"
	DefaultAvailability = "unknown"

	MaxShortDescription = 2000
	MaxFullDescription  = 8000
	MaxErrorLength      = 200
)

type Mode string

const (
	ModePDP Mode = "pdp"
	ModePLP Mode = "plp"
)

type PageType string

const (
	PageTypePDP     PageType = "pdp"
	PageTypePLP     PageType = "plp"
	PageTypeBlocked PageType = "blocked"
	PageTypeUnknown PageType = "unknown"
)

type Status string

const (
	StatusOK             Status = "OK"
	StatusBlock          Status = "BLOCK"
	StatusFail           Status = "FAIL"
	StatusRetryExhausted Status = "RETRY_EXHAUSTED"
)

// ProductRecord is the normalized content of a product detail page. Every
// field always exists; missing data is represented by its neutral default.
type ProductRecord struct {
	Title              string   `json:"title"`
	PriceRegular       *float64 `json:"price_regular"`
	PricePromo         *float64 `json:"price_promo"`
	PromoLowConfidence bool     `json:"promo_low_confidence"`
	Currency           string   `json:"currency"`
	Availability       string   `json:"availability"`
	StockText          string   `json:"stock_text"`
	Seller             string   `json:"seller"`
	Brand              string   `json:"brand"`
	Model              string   `json:"model"`
	SKU                string   `json:"sku"`
	Category           string   `json:"category"`
	DescriptionShort   string   `json:"description_short"`
	DescriptionFull    string   `json:"description_full"`
	Images             []string `json:"images"`
	Rating             string   `json:"rating"`
	ReviewsCount       string   `json:"reviews_count"`
	ProductURL         string   `json:"product_url"`
}

// ListingItem is one product summary discovered on a listing page.
type ListingItem struct {
	Title              string   `json:"title"`
	PriceRegular       *float64 `json:"price_regular"`
	PricePromo         *float64 `json:"price_promo"`
	PromoLowConfidence bool     `json:"promo_low_confidence"`
	Currency           string   `json:"currency"`
	ProductURL         string   `json:"product_url"`
	Category           string   `json:"category"`
}

func NewProductRecord(url string) *ProductRecord {
	return &ProductRecord{
		Currency:     DefaultCurrency,
		Availability: DefaultAvailability,
		Images:       make([]string, 0),
		ProductURL:   url,
	}
}

func NewListingItem() ListingItem {
	return ListingItem{Currency: DefaultCurrency}
}

// ResultRow is one output row: the union of product and listing fields plus
// run metadata.
type ResultRow struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp_utc"`
	Mode      Mode      `json:"mode"`
	SourceURL string    `json:"source_url"`
	FinalURL  string    `json:"final_url"`

	ProductRecord

	HTTPStatus       *int     `json:"http_status"`
	PageTypeDetected PageType `json:"page_type_detected"`
	Status           Status   `json:"status"`
	Error            string   `json:"error"`
	Attempts         int      `json:"attempts"`
	ElapsedSec       float64  `json:"elapsed_sec"`

	finalized bool
}

func NewResultRow(runID string, mode Mode, sourceURL string) *ResultRow {
	return &ResultRow{
		RunID:            runID,
		Timestamp:        time.Now().UTC(),
		Mode:             mode,
		SourceURL:        sourceURL,
		ProductRecord:    *NewProductRecord(""),
		PageTypeDetected: PageTypeUnknown,
	}
}

// ApplyProduct merges an extracted product record into the row.
func (r *ResultRow) ApplyProduct(p *ProductRecord) {
	if p == nil {
		return
	}
	r.ProductRecord = *p
	if r.Images == nil {
		r.Images = make([]string, 0)
	}
}

// ApplyListing merges a listing item into the row. Fields that a listing does
// not carry keep their defaults.
func (r *ResultRow) ApplyListing(item ListingItem) {
	r.Title = item.Title
	r.PriceRegular = item.PriceRegular
	r.PricePromo = item.PricePromo
	r.PromoLowConfidence = item.PromoLowConfidence
	r.Currency = item.Currency
	r.ProductURL = item.ProductURL
	r.Category = item.Category
}

// Finalize stamps the elapsed time. It only has an effect the first time it
// is called.
func (r *ResultRow) Finalize(start time.Time) {
	if r.finalized {
		return
	}
	r.ElapsedSec = math.Round(time.Since(start).Seconds()*100) / 100
	r.finalized = true
}

func (r *ResultRow) Finalized() bool {
	return r.finalized
}

func (r *ResultRow) IsOK() bool {
	return r.Status == StatusOK
}
