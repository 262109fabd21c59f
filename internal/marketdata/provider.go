// Package marketdata supplies quotes to the simulation core. Providers are
// external collaborators: the core only sees the Provider interface.
package marketdata

import (
	"time"

	"paper-trader/internal/models"
)

// Provider returns the quote for an instrument as of a point in time. A
// provider that cannot produce a usable quote returns a DataGapError (or
// an error wrapping ErrQuoteMissing); it never fabricates a price.
type Provider interface {
	Quote(instrumentID string, at time.Time) (models.Quote, error)
}
