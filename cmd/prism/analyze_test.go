package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/prism/internal/models"
)

func TestPrintSkipped(t *testing.T) {
	report := &models.AttributionReport{
		Records: map[string]*models.AttributionRecord{"AAPL": {Ticker: "AAPL"}},
		Order:   []string{"AAPL"},
		Skipped: []models.Diagnostic{{Ticker: "NEW", Code: models.DiagInsufficientObservations, Message: "regression needs 3 aligned observations"}},
	}
	clusters := &models.ClusterResult{
		Tickers: []string{"AAPL", "MSFT"},
		Diagnostics: []models.Diagnostic{
			{Ticker: "NEW", Code: models.DiagInsufficientData, Message: "NEW: 0 returns, need 2"},
			{Ticker: "MSFT", Code: models.DiagSingleMemberCluster, Message: "alone"},
		},
	}

	var buf bytes.Buffer
	printSkipped(&buf, report, clusters)
	out := buf.String()
	assert.Contains(t, out, "Skipped in attribution: NEW [insufficient_observations]")
	assert.Contains(t, out, "Skipped in clustering: NEW [insufficient_data]")
	assert.NotContains(t, out, "MSFT")

	buf.Reset()
	printSkipped(&buf, nil, nil)
	assert.Empty(t, buf.String())
}
