package marketdata

import (
	"sort"
	"time"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// HistoricalProvider serves quotes from pre-loaded candle series. Lookup is
// deterministic: the latest candle at or before the requested time, within
// the staleness tolerance.
type HistoricalProvider struct {
	series    map[string][]models.Candle
	tolerance time.Duration
}

// NewHistoricalProvider creates a provider with the given staleness
// tolerance.
func NewHistoricalProvider(tolerance time.Duration) *HistoricalProvider {
	return &HistoricalProvider{
		series:    make(map[string][]models.Candle),
		tolerance: tolerance,
	}
}

// Load registers a candle series for an instrument, sorted by timestamp.
func (p *HistoricalProvider) Load(instrumentID string, candles []models.Candle) {
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	p.series[instrumentID] = sorted
}

// Series returns the loaded candles for an instrument.
func (p *HistoricalProvider) Series(instrumentID string) []models.Candle {
	return p.series[instrumentID]
}

// Quote returns the close of the latest candle at or before the requested
// time. A candle older than the tolerance, or no candle at all, is a data
// gap.
func (p *HistoricalProvider) Quote(instrumentID string, at time.Time) (models.Quote, error) {
	candles, ok := p.series[instrumentID]
	if !ok || len(candles) == 0 {
		return models.Quote{}, apperrors.NewDataGapError(instrumentID, at, 0, p.tolerance, apperrors.ErrQuoteMissing)
	}

	// First candle after `at`, then step back one.
	idx := sort.Search(len(candles), func(i int) bool {
		return candles[i].Timestamp.After(at)
	})
	if idx == 0 {
		return models.Quote{}, apperrors.NewDataGapError(instrumentID, at, 0, p.tolerance, apperrors.ErrQuoteMissing)
	}

	candle := candles[idx-1]
	if age := at.Sub(candle.Timestamp); age > p.tolerance {
		return models.Quote{}, apperrors.NewDataGapError(instrumentID, at, age, p.tolerance, apperrors.ErrStaleQuote)
	}

	return models.Quote{
		InstrumentID: instrumentID,
		Timestamp:    candle.Timestamp,
		Last:         candle.Close,
		Volume:       candle.Volume,
	}, nil
}
