package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

const baseURL = "https://api.goshippo.com"

type Gateway struct {
	token      string
	httpClient *http.Client
}

func NewGateway(token string) *Gateway {
	return &Gateway{token: token, httpClient: &http.Client{Timeout: 15 * time.Second}}
}

type shippoAddress struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type shippoParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type shipmentReq struct {
	AddressFrom shippoAddress  `json:"address_from"`
	AddressTo   shippoAddress  `json:"address_to"`
	Parcels     []shippoParcel `json:"parcels"`
	Async       bool           `json:"async"`
}

type shippoRate struct {
	ObjectID     string `json:"object_id"`
	Provider     string `json:"provider"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ServiceLevel struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	} `json:"servicelevel"`
	EstimatedDays int    `json:"estimated_days"`
	DurationTerms string `json:"duration_terms"`
}

type shipmentResp struct {
	ObjectID string       `json:"object_id"`
	Status   string       `json:"status"`
	Rates    []shippoRate `json:"rates"`
}

type transactionReq struct {
	Rate          string `json:"rate"`
	LabelFileType string `json:"label_file_type"`
	Async         bool   `json:"async"`
}

type transactionResp struct {
	ObjectID       string `json:"object_id"`
	Status         string `json:"status"`
	Rate           string `json:"rate"`
	LabelURL       string `json:"label_url"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url_provider"`
	Messages       []struct {
		Text string `json:"text"`
	} `json:"messages"`
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, out any) error {
	if g.token == "" {
		return errors.New("shippo token missing (SHIPPO_API_TOKEN)")
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "ShippoToken "+g.token)
	req.Header.Set("Content-Type", "application/json")
	res, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shippo request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("shippo status %d: %s", res.StatusCode, string(b))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (g *Gateway) CreateShipment(ctx context.Context, from, to domain.ShippingAddress, parcel domain.Parcel) (string, []domain.Rate, error) {
	req := shipmentReq{
		AddressFrom: toShippoAddress(from),
		AddressTo:   toShippoAddress(to),
		Parcels: []shippoParcel{{
			Length:       formatDim(parcel.Length),
			Width:        formatDim(parcel.Width),
			Height:       formatDim(parcel.Height),
			DistanceUnit: parcel.DistanceUnit,
			Weight:       formatDim(parcel.Weight),
			MassUnit:     parcel.MassUnit,
		}},
		Async: false,
	}
	var resp shipmentResp
	if err := g.do(ctx, http.MethodPost, "/shipments/", req, &resp); err != nil {
		return "", nil, err
	}
	if resp.ObjectID == "" {
		return "", nil, errors.New("shippo response missing shipment id")
	}
	rates := make([]domain.Rate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		rates = append(rates, domain.Rate{
			ObjectID:      r.ObjectID,
			Provider:      r.Provider,
			Service:       r.ServiceLevel.Name,
			Amount:        r.Amount,
			Currency:      r.Currency,
			EstimatedDays: r.EstimatedDays,
			DurationTerms: r.DurationTerms,
		})
	}
	return resp.ObjectID, rates, nil
}

func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (g *Gateway) PurchaseLabel(ctx context.Context, rateID, labelFormat string) (*domain.LabelPurchase, error) {
	if labelFormat == "" {
		labelFormat = "PDF"
	}
	req := transactionReq{Rate: rateID, LabelFileType: labelFormat, Async: false}
	var resp transactionResp
	if err := g.do(ctx, http.MethodPost, "/transactions/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "ERROR" {
		msg := "label purchase failed"
		if len(resp.Messages) > 0 {
			msg = resp.Messages[0].Text
		}
		return nil, fmt.Errorf("shippo transaction: %s", msg)
	}
	return purchaseFrom(&resp, labelFormat), nil
}

func (g *Gateway) GetTransaction(ctx context.Context, transactionID string) (*domain.LabelPurchase, error) {
	var resp transactionResp
	if err := g.do(ctx, http.MethodGet, "/transactions/"+transactionID, nil, &resp); err != nil {
		return nil, err
	}
	return purchaseFrom(&resp, ""), nil
}

func purchaseFrom(t *transactionResp, labelFormat string) *domain.LabelPurchase {
	return &domain.LabelPurchase{
		TransactionID:  t.ObjectID,
		Status:         t.Status,
		RateID:         t.Rate,
		LabelURL:       t.LabelURL,
		TrackingNumber: t.TrackingNumber,
		TrackingURL:    t.TrackingURL,
		LabelFormat:    labelFormat,
	}
}

func toShippoAddress(a domain.ShippingAddress) shippoAddress {
	return shippoAddress{
		Name:    a.Name,
		Street1: a.Street1,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
		Phone:   a.Phone,
		Email:   a.Email,
	}
}
