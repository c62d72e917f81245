package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/prism/internal/models"
)

var (
	// ErrInvalidClusterCount is returned when the requested flat cluster
	// count is outside [1, number of assets].
	ErrInvalidClusterCount = errors.New("cluster count out of range")
	ErrUnknownTicker       = errors.New("unknown ticker")
	ErrUnknownEngine       = errors.New("unknown engine")
)

// Error codes exposed to API consumers.
const (
	CodeDataAlignment      = "data_alignment"
	CodeNonPositivePrice   = "non_positive_price"
	CodeInsufficientAssets = "insufficient_assets"
	CodeInsufficientData   = "insufficient_data"
	CodeInvalidClusters    = "invalid_cluster_count"
	CodeUnknownTicker      = "unknown_ticker"
	CodeUnknownEngine      = "unknown_engine"
)

// DataAlignmentError reports a mismatch between holdings and the price index.
type DataAlignmentError struct {
	Ticker string
	Date   time.Time
	Reason string
}

func (e *DataAlignmentError) Error() string {
	switch {
	case e.Ticker != "":
		return fmt.Sprintf("data alignment: ticker %s: %s", e.Ticker, e.Reason)
	case !e.Date.IsZero():
		return fmt.Sprintf("data alignment: date %s: %s", e.Date.Format(models.DateLayout), e.Reason)
	default:
		return "data alignment: " + e.Reason
	}
}

// NonPositivePriceError reports a price that has no logarithm.
type NonPositivePriceError struct {
	Ticker string
	Date   time.Time
	Price  float64
}

func (e *NonPositivePriceError) Error() string {
	return fmt.Sprintf("non-positive price %g for %s on %s", e.Price, e.Ticker, e.Date.Format(models.DateLayout))
}

// InsufficientAssetsError reports too few assets (or, for a regression,
// too few aligned observations for one ticker).
type InsufficientAssetsError struct {
	Context string
	Ticker  string
	Have    int
	Need    int
}

func (e *InsufficientAssetsError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("%s: %s has %d aligned observations, need at least %d", e.Context, e.Ticker, e.Have, e.Need)
	}
	return fmt.Sprintf("%s: %d assets, need at least %d", e.Context, e.Have, e.Need)
}

// InsufficientDataError reports a series too short to derive returns from.
type InsufficientDataError struct {
	Ticker string
	Have   int
	Need   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "observations"
	}
	if e.Ticker == "" {
		return fmt.Sprintf("insufficient data: %d %s, need at least %d", e.Have, reason, e.Need)
	}
	return fmt.Sprintf("insufficient data for %s: %d %s, need at least %d", e.Ticker, e.Have, reason, e.Need)
}

// ErrorCode maps an engine error to its API code, or "" for other errors.
func ErrorCode(err error) string {
	var (
		alignErr  *DataAlignmentError
		priceErr  *NonPositivePriceError
		assetsErr *InsufficientAssetsError
		dataErr   *InsufficientDataError
	)
	switch {
	case errors.As(err, &alignErr):
		return CodeDataAlignment
	case errors.As(err, &priceErr):
		return CodeNonPositivePrice
	case errors.As(err, &assetsErr):
		return CodeInsufficientAssets
	case errors.As(err, &dataErr):
		return CodeInsufficientData
	case errors.Is(err, ErrInvalidClusterCount):
		return CodeInvalidClusters
	case errors.Is(err, ErrUnknownTicker):
		return CodeUnknownTicker
	case errors.Is(err, ErrUnknownEngine):
		return CodeUnknownEngine
	}
	return ""
}

func diagnosticFrom(ticker, code string, err error) models.Diagnostic {
	return models.Diagnostic{Ticker: ticker, Code: code, Message: err.Error()}
}
