package models

import "time"

// EODBar represents an end-of-day price bar
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// Fundamentals holds the reference data used to enrich holdings.
type Fundamentals struct {
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name"`
	Sector       string    `json:"sector"`
	Industry     string    `json:"industry"`
	Type         string    `json:"type"`
	IsETF        bool      `json:"is_etf"`
	ExpenseRatio float64   `json:"expense_ratio,omitempty"`
	TotalAssets  float64   `json:"total_assets,omitempty"`
	MarketCap    float64   `json:"market_cap,omitempty"`
	Description  string    `json:"description,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
}

// InsightKind identifies the generated text type.
type InsightKind string

const (
	InsightNews        InsightKind = "news"
	InsightFundProfile InsightKind = "fund_profile"
)

// Insight is AI-generated commentary for one ticker.
type Insight struct {
	Ticker      string      `json:"ticker"`
	Kind        InsightKind `json:"kind"`
	Text        string      `json:"text"`
	Model       string      `json:"model"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// EODResponse holds a price history in the order the API returned it.
type EODResponse struct {
	Data []EODBar `json:"data"`
}
