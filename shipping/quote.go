// Package shipping quotes delivery options for a destination zip code.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/models"
)

const (
	// OperationalMargin is added to every carrier price, in MXN.
	OperationalMargin = 20.0
	// FreeShippingThreshold makes the cheapest option free at or above this order total.
	FreeShippingThreshold = 1500.0

	minZipLength = 5
)

var ErrDisabled = errors.New("shipping quotes are disabled")

// Rate is one carrier offer as returned by the rate provider.
type Rate struct {
	ID           string
	Provider     string
	ServiceLevel string
	TotalPricing float64
	// Days is the leading integer of the delivery estimate, or
	// math.MaxInt when the carrier gave none.
	Days      int
	DaysLabel string
}

type RateProvider interface {
	Enabled() bool
	Rates(ctx context.Context, zipCode string) ([]Rate, error)
}

// Disabled is used when no carrier credential is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Rates(context.Context, string) ([]Rate, error) { return nil, ErrDisabled }

type Quoter struct {
	provider RateProvider
	log      *zap.Logger
}

func NewQuoter(provider RateProvider, log *zap.Logger) *Quoter {
	if provider == nil {
		provider = Disabled{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Quoter{provider: provider, log: log}
}

func (q *Quoter) Enabled() bool { return q.provider.Enabled() }

// Quote never fails: any problem with the carrier yields no options.
func (q *Quoter) Quote(ctx context.Context, total float64, zipCode string) []models.ShippingOption {
	if !q.provider.Enabled() || len(zipCode) < minZipLength {
		q.log.Debug("shipping quote skipped", zap.String("zip", zipCode), zap.Bool("providerEnabled", q.provider.Enabled()))
		return []models.ShippingOption{}
	}

	rates, err := q.provider.Rates(ctx, zipCode)
	if err != nil {
		q.log.Error("shipping rates unavailable", zap.String("zip", zipCode), zap.Error(err))
		return []models.ShippingOption{}
	}
	return SelectOptions(rates, total)
}

// SelectOptions keeps the cheapest and the fastest rate (one option when
// they coincide), adds the margin and applies free shipping.
func SelectOptions(rates []Rate, total float64) []models.ShippingOption {
	if len(rates) == 0 {
		return []models.ShippingOption{}
	}

	sorted := make([]Rate, len(rates))
	copy(sorted, rates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TotalPricing < sorted[j].TotalPricing })
	cheapest := sorted[0]

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Days < sorted[j].Days })
	fastest := sorted[0]

	options := []models.ShippingOption{toOption(cheapest)}
	if fastest.ID != cheapest.ID {
		options = append(options, toOption(fastest))
	}

	if total >= FreeShippingThreshold {
		options[0].Price = 0
		options[0].Name += " (GRATIS)"
	}
	return options
}

func toOption(r Rate) models.ShippingOption {
	label := r.DaysLabel
	if label == "" && r.Days != math.MaxInt {
		label = fmt.Sprintf("%d", r.Days)
	}
	return models.ShippingOption{
		ID:    "skydropx_" + r.ID,
		Name:  r.Provider + " - " + r.ServiceLevel,
		Price: r.TotalPricing + OperationalMargin,
		Days:  label + " días hábiles",
	}
}
