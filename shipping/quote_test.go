package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/papeleria-1x1/checkout-api/models"
)

type mockRateProvider struct {
	mock.Mock
}

func (m *mockRateProvider) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockRateProvider) Rates(ctx context.Context, zipCode string) ([]Rate, error) {
	args := m.Called(ctx, zipCode)
	rates, _ := args.Get(0).([]Rate)
	return rates, args.Error(1)
}

var sampleRates = []Rate{
	{ID: "1", Provider: "Estafeta", ServiceLevel: "Terrestre", TotalPricing: 80, Days: 3, DaysLabel: "3"},
	{ID: "2", Provider: "DHL", ServiceLevel: "Express", TotalPricing: 150, Days: 1, DaysLabel: "1"},
}

func TestSelectOptionsCheapestAndFastest(t *testing.T) {
	options := SelectOptions(sampleRates, 500)
	require.Len(t, options, 2)

	assert.Equal(t, models.ShippingOption{ID: "skydropx_1", Name: "Estafeta - Terrestre", Price: 100, Days: "3 días hábiles"}, options[0])
	assert.Equal(t, models.ShippingOption{ID: "skydropx_2", Name: "DHL - Express", Price: 170, Days: "1 días hábiles"}, options[1])
}

func TestSelectOptionsFreeShippingAtThreshold(t *testing.T) {
	options := SelectOptions(sampleRates, 1500)
	require.Len(t, options, 2)

	assert.Equal(t, 0.0, options[0].Price)
	assert.Equal(t, "Estafeta - Terrestre (GRATIS)", options[0].Name)
	assert.Equal(t, 170.0, options[1].Price)
	assert.Equal(t, "DHL - Express", options[1].Name)
}

func TestSelectOptionsJustBelowThreshold(t *testing.T) {
	options := SelectOptions(sampleRates, 1499.99)
	require.Len(t, options, 2)
	assert.Equal(t, 100.0, options[0].Price)
}

func TestSelectOptionsSingleWhenCheapestIsFastest(t *testing.T) {
	rates := []Rate{
		{ID: "a", Provider: "Fedex", ServiceLevel: "Standard", TotalPricing: 90, Days: 1, DaysLabel: "1"},
		{ID: "b", Provider: "DHL", ServiceLevel: "Express", TotalPricing: 200, Days: 1, DaysLabel: "1"},
		{ID: "c", Provider: "Estafeta", ServiceLevel: "Terrestre", TotalPricing: 120, Days: 4, DaysLabel: "4"},
	}
	options := SelectOptions(rates, 0)
	require.Len(t, options, 1)
	assert.Equal(t, "skydropx_a", options[0].ID)
}

func TestSelectOptionsEmpty(t *testing.T) {
	options := SelectOptions(nil, 2000)
	assert.NotNil(t, options)
	assert.Empty(t, options)
}

func TestQuoterShortZipSkipsProvider(t *testing.T) {
	p := &mockRateProvider{}
	p.On("Enabled").Return(true)

	q := NewQuoter(p, nil)
	assert.Empty(t, q.Quote(context.Background(), 100, "0606"))
	p.AssertNotCalled(t, "Rates", mock.Anything, mock.Anything)
}

func TestQuoterProviderErrorYieldsNoOptions(t *testing.T) {
	p := &mockRateProvider{}
	p.On("Enabled").Return(true)
	p.On("Rates", mock.Anything, "44100").Return(nil, errors.New("boom"))

	q := NewQuoter(p, nil)
	options := q.Quote(context.Background(), 100, "44100")
	assert.NotNil(t, options)
	assert.Empty(t, options)
	p.AssertExpectations(t)
}

func TestQuoterDisabled(t *testing.T) {
	q := NewQuoter(Disabled{}, nil)
	assert.False(t, q.Enabled())
	assert.Empty(t, q.Quote(context.Background(), 100, "44100"))
}
