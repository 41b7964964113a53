package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/models"
)

const (
	DefaultSkydropxURL        = "https://api.skydropx.com"
	DefaultSkydropxSandboxURL = "https://api-demo.skydropx.com"
)

type address struct {
	Zip      string `json:"zip"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country"`
}

type parcel struct {
	Weight       float64 `json:"weight"`
	DistanceUnit string  `json:"distance_unit"`
	MassUnit     string  `json:"mass_unit"`
	Height       float64 `json:"height"`
	Width        float64 `json:"width"`
	Length       float64 `json:"length"`
}

type shipmentRequest struct {
	AddressFrom address  `json:"address_from"`
	AddressTo   address  `json:"address_to"`
	Parcels     []parcel `json:"parcels"`
}

// Shop origin, Ciudad de México centro.
var shopAddress = address{
	Zip:      "06060",
	City:     "Cuauhtémoc",
	Province: "Ciudad de México",
	Country:  "MX",
}

var defaultParcel = parcel{
	Weight:       2,
	DistanceUnit: "CM",
	MassUnit:     "KG",
	Height:       15,
	Width:        20,
	Length:       20,
}

type rateDTO struct {
	ID               json.RawMessage `json:"id"`
	Provider         string          `json:"provider"`
	ServiceLevelName string          `json:"service_level_name"`
	TotalPricing     models.Number   `json:"total_pricing"`
	Days             json.RawMessage `json:"days"`
}

type shipmentResponse struct {
	IncludedShippingRates []rateDTO `json:"included_shipping_rates"`
	Data                  *struct {
		IncludedShippingRates []rateDTO `json:"included_shipping_rates"`
	} `json:"data"`
}

// Skydropx quotes rates by creating a shipment draft.
type Skydropx struct {
	client     *resty.Client
	apiKey     string
	baseURL    string
	sandboxURL string
	log        *zap.Logger
}

func NewSkydropx(apiKey, baseURL, sandboxURL string, log *zap.Logger) *Skydropx {
	if baseURL == "" {
		baseURL = DefaultSkydropxURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Skydropx{
		client:     resty.New().SetTimeout(20 * time.Second),
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		sandboxURL: strings.TrimRight(sandboxURL, "/"),
		log:        log,
	}
}

func (s *Skydropx) Enabled() bool { return s.apiKey != "" }

func (s *Skydropx) Rates(ctx context.Context, zipCode string) ([]Rate, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	resp, err := s.fetch(ctx, s.baseURL, zipCode)
	if err != nil {
		return nil, err
	}

	// Sandbox keys are rejected by production; retry there once.
	if resp.StatusCode() == http.StatusUnauthorized && s.sandboxURL != "" && s.sandboxURL != s.baseURL {
		s.log.Warn("skydropx rejected credentials, retrying against sandbox", zap.String("url", s.sandboxURL))
		resp, err = s.fetch(ctx, s.sandboxURL, zipCode)
		if err != nil {
			return nil, err
		}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("skydropx: status %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}

	var body shipmentResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("skydropx: decode response: %w", err)
	}
	dtos := body.IncludedShippingRates
	if len(dtos) == 0 && body.Data != nil {
		dtos = body.Data.IncludedShippingRates
	}

	rates := make([]Rate, 0, len(dtos))
	for _, dto := range dtos {
		if !dto.TotalPricing.Valid {
			s.log.Debug("skipping rate without price", zap.String("provider", dto.Provider))
			continue
		}
		days, label := parseDays(dto.Days)
		rates = append(rates, Rate{
			ID:           rawText(dto.ID),
			Provider:     dto.Provider,
			ServiceLevel: dto.ServiceLevelName,
			TotalPricing: dto.TotalPricing.Value,
			Days:         days,
			DaysLabel:    label,
		})
	}
	return rates, nil
}

func (s *Skydropx) fetch(ctx context.Context, baseURL, zipCode string) (*resty.Response, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token token="+s.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(shipmentRequest{
			AddressFrom: shopAddress,
			AddressTo:   address{Zip: zipCode, Country: "MX"},
			Parcels:     []parcel{defaultParcel},
		}).
		Post(baseURL + "/v1/shipments")
	if err != nil {
		return nil, fmt.Errorf("skydropx: request %s: %w", baseURL, err)
	}
	return resp, nil
}

// rawText renders a JSON scalar as plain text, unquoting strings.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseDays reads the leading integer of a day estimate such as 3 or "3 a 5".
func parseDays(raw json.RawMessage) (int, string) {
	label := strings.TrimSpace(rawText(raw))
	end := 0
	for end < len(label) && unicode.IsDigit(rune(label[end])) {
		end++
	}
	if end == 0 {
		return math.MaxInt, label
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return math.MaxInt, label
	}
	return n, label
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
