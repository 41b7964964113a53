package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkydropxRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/shipments", r.URL.Path)
		assert.Equal(t, "Token token=secret", r.Header.Get("Authorization"))

		var req shipmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "06060", req.AddressFrom.Zip)
		assert.Equal(t, "44100", req.AddressTo.Zip)
		assert.Equal(t, "MX", req.AddressTo.Country)
		require.Len(t, req.Parcels, 1)
		assert.Equal(t, 2.0, req.Parcels[0].Weight)

		fmt.Fprint(w, `{"included_shipping_rates":[
			{"id":101,"provider":"Estafeta","service_level_name":"Terrestre","total_pricing":"80.50","days":3},
			{"id":"102","provider":"DHL","service_level_name":"Express","total_pricing":150,"days":"1"},
			{"id":103,"provider":"Otro","service_level_name":"Raro","total_pricing":"n/a","days":2}
		]}`)
	}))
	defer srv.Close()

	s := NewSkydropx("  secret \n", srv.URL, "", nil)
	rates, err := s.Rates(context.Background(), "44100")
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, "101", rates[0].ID)
	assert.Equal(t, 80.5, rates[0].TotalPricing)
	assert.Equal(t, 3, rates[0].Days)
	assert.Equal(t, "102", rates[1].ID)
	assert.Equal(t, 1, rates[1].Days)
}

func TestSkydropxNestedDataShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"included_shipping_rates":[{"id":7,"provider":"Fedex","service_level_name":"Standard","total_pricing":99,"days":"2 a 3"}]}}`)
	}))
	defer srv.Close()

	rates, err := NewSkydropx("k", srv.URL, "", nil).Rates(context.Background(), "44100")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 2, rates[0].Days)
	assert.Equal(t, "2 a 3", rates[0].DaysLabel)
}

func TestSkydropxFallsBackToSandboxOn401(t *testing.T) {
	var prodCalls, sandboxCalls int32
	prod := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&prodCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer prod.Close()
	sandbox := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&sandboxCalls, 1)
		fmt.Fprint(w, `{"included_shipping_rates":[{"id":1,"provider":"DHL","service_level_name":"Express","total_pricing":100,"days":1}]}`)
	}))
	defer sandbox.Close()

	rates, err := NewSkydropx("k", prod.URL, sandbox.URL, nil).Rates(context.Background(), "44100")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&prodCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&sandboxCalls))
}

func TestSkydropxNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"errors":["bad zip"]}`)
	}))
	defer srv.Close()

	_, err := NewSkydropx("k", srv.URL, "", nil).Rates(context.Background(), "00000")
	assert.Error(t, err)
}

func TestSkydropxQuoteEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"included_shipping_rates":[
			{"id":1,"provider":"Estafeta","service_level_name":"Terrestre","total_pricing":80,"days":3},
			{"id":2,"provider":"DHL","service_level_name":"Express","total_pricing":150,"days":1}
		]}`)
	}))
	defer srv.Close()

	q := NewQuoter(NewSkydropx("k", srv.URL, "", nil), nil)
	options := q.Quote(context.Background(), 1500, "44100")
	require.Len(t, options, 2)
	assert.Equal(t, "Estafeta - Terrestre (GRATIS)", options[0].Name)
	assert.Equal(t, 0.0, options[0].Price)
	assert.Equal(t, 170.0, options[1].Price)
}

func TestParseDays(t *testing.T) {
	n, label := parseDays(json.RawMessage(`5`))
	assert.Equal(t, 5, n)
	assert.Equal(t, "5", label)

	n, _ = parseDays(json.RawMessage(`"3 a 5 días"`))
	assert.Equal(t, 3, n)

	n, _ = parseDays(nil)
	assert.Equal(t, math.MaxInt, n)
}
