package analysis

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/bobmcallan/prism/internal/storage/csvfile"
)

// Export artefacts. Each maps to one CSV table.
const (
	ExportPanel       = "panel"
	ExportAttribution = "attribution"
	ExportLoadings    = "loadings"
	ExportCorrelation = "correlation"
	ExportClusters    = "clusters"
	ExportFactors     = "factor_series"
)

// ExportNames lists every CSV artefact.
var ExportNames = []string{ExportPanel, ExportAttribution, ExportLoadings, ExportCorrelation, ExportClusters, ExportFactors}

// Chart names.
const (
	ChartCumulativeReturns = "cumret"
	ChartExplainedVariance = "variance"
	ChartFactorSeries      = "factors"
)

// ChartNames lists every PNG artefact.
var ChartNames = []string{ChartCumulativeReturns, ChartExplainedVariance, ChartFactorSeries}

// ExportOptions parameterises the engine behind an export.
type ExportOptions struct {
	Filter     interfaces.Filter
	Clusters   int
	Mode       models.FeatureMode
	Components int
}

// ExportCSV renders one artefact as CSV
func (s *Service) ExportCSV(ctx context.Context, session *models.Session, name string, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer

	switch strings.ToLower(name) {
	case ExportPanel:
		if err := csvfile.WritePanel(&buf, session.Panel); err != nil {
			return nil, err
		}
	case ExportAttribution:
		report, err := s.Attribution(ctx, session, opts.Filter)
		if err != nil {
			return nil, err
		}
		if err := csvfile.WriteAttribution(&buf, report); err != nil {
			return nil, err
		}
	case ExportLoadings:
		dec, err := s.Factors(ctx, session, opts.Filter, opts.Components)
		if err != nil {
			return nil, err
		}
		if err := csvfile.WriteLoadings(&buf, dec); err != nil {
			return nil, err
		}
	case ExportCorrelation:
		corr, err := s.Correlation(ctx, session, opts.Filter)
		if err != nil {
			return nil, err
		}
		if err := csvfile.WriteCorrelation(&buf, corr); err != nil {
			return nil, err
		}
	case ExportClusters:
		res, err := s.Cluster(ctx, session, opts.Filter, opts.Clusters, opts.Mode)
		if err != nil {
			return nil, err
		}
		if err := csvfile.WriteClusters(&buf, res); err != nil {
			return nil, err
		}
	case ExportFactors:
		dec, err := s.Factors(ctx, session, opts.Filter, opts.Components)
		if err != nil {
			return nil, err
		}
		if err := csvfile.WriteFactorSeries(&buf, dec); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown export %q", name)
	}

	return buf.Bytes(), nil
}

// Chart renders one PNG chart
func (s *Service) Chart(ctx context.Context, session *models.Session, name string, opts ExportOptions) ([]byte, error) {
	switch strings.ToLower(name) {
	case ChartCumulativeReturns:
		tickers := []string(nil)
		if len(opts.Filter.Sectors) > 0 || len(opts.Filter.Tickers) > 0 {
			selected, err := s.resolveTickers(session, opts.Filter)
			if err != nil {
				return nil, err
			}
			tickers = append(selected, models.PortfolioTicker)
		}
		return RenderCumulativeReturns(session.Panel, tickers)
	case ChartExplainedVariance:
		dec, err := s.Factors(ctx, session, opts.Filter, opts.Components)
		if err != nil {
			return nil, err
		}
		return RenderExplainedVariance(dec)
	case ChartFactorSeries:
		dec, err := s.Factors(ctx, session, opts.Filter, opts.Components)
		if err != nil {
			return nil, err
		}
		return RenderFactorSeries(dec)
	}
	return nil, fmt.Errorf("unknown chart %q", name)
}

// SaveAll writes every CSV artefact and chart for the session under the
// file store, in a directory named after the session. Artefacts an engine
// cannot produce are logged and skipped; the written paths are returned.
func (s *Service) SaveAll(ctx context.Context, files interfaces.FileStore, session *models.Session, opts ExportOptions) ([]string, error) {
	var paths []string

	write := func(key string, data []byte) error {
		path, err := files.WriteRaw(session.ID, key, data)
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	}

	for _, name := range ExportNames {
		data, err := s.ExportCSV(ctx, session, name, opts)
		if err != nil {
			s.log(ctx).Warn().Str("export", name).Err(err).Msg("Export skipped")
			continue
		}
		if err := write(name+".csv", data); err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
	}

	for _, name := range ChartNames {
		data, err := s.Chart(ctx, session, name, opts)
		if err != nil {
			s.log(ctx).Warn().Str("chart", name).Err(err).Msg("Chart skipped")
			continue
		}
		if err := write(name+".png", data); err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
	}

	s.log(ctx).Info().Str("session", session.ID).Int("files", len(paths)).Str("path", files.BasePath()).Msg("Exports written")
	return paths, nil
}
