package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
	"github.com/sorianoB28/luckycaps-sub000/internal/usecase"
)

// WebhookParser verifies a raw processor webhook payload and extracts
// the completed-session view, or nil for event types we ignore.
type WebhookParser interface {
	ParseCompletedEvent(payload []byte, sigHeader string) (*domain.PaymentSessionInfo, error)
}

type Server struct {
	mux        *http.ServeMux
	products   *usecase.ProductUC
	quotes     *usecase.QuoteUC
	checkouts  *usecase.CheckoutUC
	orders     *usecase.OrderUC
	shipments  *usecase.ShipmentUC
	promos     *usecase.PromoUC
	promoAdmin *usecase.PromoAdminUC
	customers  domain.CustomerRepo
	gateway    domain.PaymentGateway
	webhooks   WebhookParser
	oauthCfg   *oauth2.Config

	adminAllowed map[string]struct{}
	adminSecret  []byte
}

type Deps struct {
	Products   *usecase.ProductUC
	Quotes     *usecase.QuoteUC
	Checkouts  *usecase.CheckoutUC
	Orders     *usecase.OrderUC
	Shipments  *usecase.ShipmentUC
	Promos     *usecase.PromoUC
	PromoAdmin *usecase.PromoAdminUC
	Customers  domain.CustomerRepo
	Gateway    domain.PaymentGateway
	Webhooks   WebhookParser
	OAuth      *oauth2.Config
}

func New(d Deps) http.Handler {
	s := &Server{
		mux:        http.NewServeMux(),
		products:   d.Products,
		quotes:     d.Quotes,
		checkouts:  d.Checkouts,
		orders:     d.Orders,
		shipments:  d.Shipments,
		promos:     d.Promos,
		promoAdmin: d.PromoAdmin,
		customers:  d.Customers,
		gateway:    d.Gateway,
		webhooks:   d.Webhooks,
		oauthCfg:   d.OAuth,
	}

	allowed := map[string]struct{}{}
	if raw := os.Getenv("ADMIN_ALLOWED_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				allowed[e] = struct{}{}
			}
		}
	}
	s.adminAllowed = allowed
	sec := os.Getenv("JWT_ADMIN_SECRET")
	if sec == "" {
		sec = os.Getenv("SECRET_KEY")
	}
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		PublicRateLimit(map[string]int{
			"/api/quote":          15,
			"/api/checkout":       10,
			"/api/promo/validate": 20,
			"/webhooks/stripe":    60,
		}),
		RateLimit(120),
		SecurityHeaders,
		Gzip,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/products", s.apiProducts)
	s.mux.HandleFunc("/api/products/", s.apiProductBySlug)
	s.mux.HandleFunc("/api/quote", s.apiQuote)
	s.mux.HandleFunc("/api/promo/validate", s.apiPromoValidate)
	s.mux.HandleFunc("/api/checkout", s.apiCheckout)
	s.mux.HandleFunc("/api/checkout/complete", s.apiCheckoutComplete)
	s.mux.HandleFunc("/webhooks/stripe", s.webhookStripe)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/logout", s.handleLogout)

	s.mux.HandleFunc("/admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("/admin/api/orders", s.adminOrders)
	s.mux.HandleFunc("/admin/api/orders/export", s.adminOrdersExport)
	s.mux.HandleFunc("/admin/api/orders/", s.adminOrderByID)
	s.mux.HandleFunc("/admin/api/products", s.adminProducts)
	s.mux.HandleFunc("/admin/api/products/", s.adminProductBySlug)
	s.mux.HandleFunc("/admin/api/promos", s.adminPromos)
	s.mux.HandleFunc("/admin/api/promos/", s.adminPromoByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	if page < 1 {
		page = 1
	}
	active := true
	f := domain.ProductFilter{
		Category: qv.Get("category"),
		Query:    qv.Get("q"),
		Sort:     qv.Get("sort"),
		Page:     page,
		PageSize: 24,
		Active:   &active,
	}
	if qv.Get("on_sale") == "1" {
		t := true
		f.OnSale = &t
	}
	if qv.Get("new_drop") == "1" {
		t := true
		f.NewDrop = &t
	}
	list, total, err := s.products.List(r.Context(), f)
	if err != nil {
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"items": list, "total": total, "page": page})
}

func (s *Server) apiProductBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}
	p, err := s.products.GetBySlug(r.Context(), slug)
	if err != nil || !p.Active {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, 200, p)
}

func (s *Server) apiQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 8192))
	var req usecase.QuoteRequest
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	q, err := s.quotes.Compute(r.Context(), req)
	if err != nil {
		writeQuoteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, 200, map[string]any{"ok": true, "quote": q})
}

func (s *Server) apiPromoValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 2048))
	var req struct {
		Code     string `json:"code"`
		Subtotal int64  `json:"subtotal"`
		Currency string `json:"currency"`
	}
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	if req.Currency == "" {
		req.Currency = usecase.DefaultCurrency
	}
	v, err := s.promos.Validate(r.Context(), req.Code, req.Subtotal, req.Currency)
	if err != nil {
		var perr *domain.PromoError
		if errors.As(err, &perr) {
			writeJSON(w, 422, map[string]any{"ok": false, "error": perr.Message, "promo_error": perr})
			return
		}
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "promo": v})
}

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 16384))
	var req usecase.CheckoutRequest
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	var customerID *uuid.UUID
	if u := readUserSession(r); u != nil && s.customers != nil {
		if c, err := s.customers.FindByEmail(r.Context(), u.Email); err == nil {
			customerID = &c.ID
		}
	}
	url, err := s.checkouts.Initiate(r.Context(), req, customerID)
	if err != nil {
		writeQuoteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, 200, map[string]any{"url": url})
}

// apiCheckoutComplete backs the post-payment polling page. When the
// webhook has not landed yet it asks the processor directly and
// finalizes synchronously if the session is already paid.
func (s *Server) apiCheckoutComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		http.Error(w, "session_id", 400)
		return
	}
	if o, err := s.checkouts.LookupOrderBySession(r.Context(), sessionID); err == nil {
		writeJSON(w, 200, map[string]any{"order_id": o.ID, "status": o.Status, "total": o.Total, "currency": o.Currency})
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "err", 500)
		return
	}

	info, err := s.gateway.GetCheckoutSession(r.Context(), sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session lookup")
		writeJSON(w, 202, map[string]any{"status": "pending"})
		return
	}
	if info.PaymentStatus != "paid" {
		writeJSON(w, 202, map[string]any{"status": "pending"})
		return
	}
	orderID, err := s.checkouts.Finalize(r.Context(), sessionID, info.PaymentIntentID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("sync finalize")
		writeJSON(w, 202, map[string]any{"status": "pending"})
		return
	}
	if _, err := s.checkouts.Reconcile(r.Context(), sessionID, info.AmountTotal, info.Currency); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("reconcile")
	}
	writeJSON(w, 200, map[string]any{"order_id": orderID, "status": domain.OrderStatusPaid})
}

// webhookStripe is the primary finalization path. Any verified event is
// acknowledged with 200 so the processor stops retrying; only signature
// failures are rejected.
func (s *Server) webhookStripe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "body", 400)
		return
	}
	info, err := s.webhooks.ParseCompletedEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("webhook verify")
		http.Error(w, "signature", 400)
		return
	}
	if info == nil {
		w.WriteHeader(200)
		return
	}
	orderID, err := s.checkouts.Finalize(r.Context(), info.ID, info.PaymentIntentID)
	if err != nil {
		// Retry via the processor; the operation is idempotent.
		log.Error().Err(err).Str("session_id", info.ID).Msg("webhook finalize")
		http.Error(w, "finalize", 500)
		return
	}
	if mismatch, err := s.checkouts.Reconcile(r.Context(), info.ID, info.AmountTotal, info.Currency); err != nil {
		log.Error().Err(err).Str("session_id", info.ID).Msg("reconcile")
	} else if mismatch {
		log.Warn().Str("session_id", info.ID).Int64("reported", info.AmountTotal).Msg("amount mismatch")
	}
	log.Info().Str("session_id", info.ID).Str("order_id", orderID.String()).Msg("checkout finalized")
	w.WriteHeader(200)
}

func (s *Server) adminOrders(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	if page < 1 {
		page = 1
	}
	f := domain.OrderFilter{
		Status:   domain.OrderStatus(qv.Get("status")),
		Email:    qv.Get("email"),
		Sort:     qv.Get("sort"),
		Page:     page,
		PageSize: 50,
	}
	list, total, err := s.orders.List(r.Context(), f)
	if err != nil {
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"items": list, "total": total, "page": page})
}

func (s *Server) adminOrdersExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	f := domain.OrderFilter{
		Status:   domain.OrderStatus(r.URL.Query().Get("status")),
		Page:     1,
		PageSize: 5000,
	}
	list, _, err := s.orders.List(r.Context(), f)
	if err != nil {
		http.Error(w, "err", 500)
		return
	}

	xl := excelize.NewFile()
	defer xl.Close()
	sheet := "Orders"
	xl.SetSheetName("Sheet1", sheet)
	headers := []string{"ID", "Created", "Status", "Email", "Name", "Delivery", "Promo", "Subtotal", "Discount", "Shipping", "Total", "Currency", "Tracking"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = xl.SetCellValue(sheet, cell, h)
	}
	for row, o := range list {
		values := []any{
			o.ID.String(),
			o.CreatedAt.Format("2006-01-02 15:04"),
			string(o.Status),
			o.Email,
			o.Name,
			o.DeliveryOption,
			o.PromoCode,
			centsToDecimal(o.Subtotal),
			centsToDecimal(o.DiscountAmount),
			centsToDecimal(o.Shipping),
			centsToDecimal(o.Total),
			o.Currency,
			o.TrackingNumber,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = xl.SetCellValue(sheet, cell, v)
		}
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="orders-`+time.Now().Format("20060102")+`.xlsx"`)
	if _, err := xl.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("orders export")
	}
}

func centsToDecimal(v int64) float64 { return float64(v) / 100 }

// adminOrderByID routes /admin/api/orders/{id}[/status|/tracking|/shipment[/label|/rates]]
func (s *Server) adminOrderByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/api/orders/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "order id", 400)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method", 405)
			return
		}
		o, err := s.orders.Get(r.Context(), id)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		resp := map[string]any{"order": o}
		if sh, err := s.shipments.Get(r.Context(), id); err == nil {
			resp["shipment"] = sh
		}
		writeJSON(w, 200, resp)
		return
	}

	switch parts[1] {
	case "status":
		s.adminOrderStatus(w, r, id)
	case "tracking":
		s.adminOrderTracking(w, r, id)
	case "shipment":
		s.adminOrderShipment(w, r, id, parts[2:])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) adminOrderStatus(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	o, err := s.orders.UpdateStatus(r.Context(), id, domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), 400)
		return
	}
	writeJSON(w, 200, o)
}

func (s *Server) adminOrderTracking(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		TrackingNumber string `json:"tracking_number"`
		AdminNotes     string `json:"admin_notes"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	o, err := s.orders.UpdateTracking(r.Context(), id, req.TrackingNumber, req.AdminNotes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "err", 500)
		return
	}
	writeJSON(w, 200, o)
}

func (s *Server) adminOrderShipment(w http.ResponseWriter, r *http.Request, orderID uuid.UUID, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			sh, err := s.shipments.Get(r.Context(), orderID)
			if err != nil {
				http.NotFound(w, r)
				return
			}
			writeJSON(w, 200, sh)
		case http.MethodPost:
			var req usecase.DraftShipmentRequest
			if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
				http.Error(w, "json", 400)
				return
			}
			sh, err := s.shipments.CreateDraft(r.Context(), orderID, req)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					http.NotFound(w, r)
					return
				}
				http.Error(w, err.Error(), 422)
				return
			}
			writeJSON(w, 200, sh)
		default:
			http.Error(w, "method", 405)
		}
		return
	}

	if rest[0] != "label" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			RateID string `json:"rate_id"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		res, err := s.shipments.PurchaseLabel(r.Context(), orderID, req.RateID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, err.Error(), 422)
			return
		}
		writeJSON(w, 200, res)
	case http.MethodGet:
		url, err := s.shipments.LabelURLFor(r.Context(), orderID)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		writeJSON(w, 200, map[string]any{"label_url": url})
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) adminProducts(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		list, total, err := s.products.List(r.Context(), domain.ProductFilter{Page: page, PageSize: 100})
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list, "total": total})
	case http.MethodPost:
		var p domain.Product
		if err := json.NewDecoder(io.LimitReader(r.Body, 32768)).Decode(&p); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.products.Save(r.Context(), &p); err != nil {
			http.Error(w, err.Error(), 422)
			return
		}
		writeJSON(w, 201, p)
	default:
		http.Error(w, "method", 405)
	}
}

// adminProductBySlug routes /admin/api/products/{slug}[/image]
func (s *Server) adminProductBySlug(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/api/products/")
	if strings.HasSuffix(rest, "/image") {
		s.adminProductImage(w, r, strings.TrimSuffix(rest, "/image"))
		return
	}
	slug := strings.Trim(rest, "/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.products.GetBySlug(r.Context(), slug)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, 200, p)
	case http.MethodPut:
		p, err := s.products.GetBySlug(r.Context(), slug)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		var req domain.Product
		if err := json.NewDecoder(io.LimitReader(r.Body, 32768)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		req.ID = p.ID
		req.Slug = p.Slug
		req.CreatedAt = p.CreatedAt
		if err := s.products.Save(r.Context(), &req); err != nil {
			http.Error(w, err.Error(), 422)
			return
		}
		writeJSON(w, 200, req)
	case http.MethodDelete:
		if err := s.products.DeleteBySlug(r.Context(), slug); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "delete", 500)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok", "slug": slug})
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) adminProductImage(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseMultipartForm(25 << 20); err != nil {
		http.Error(w, "multipart", 400)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image", 400)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		http.Error(w, "image", 400)
		return
	}
	p, err := s.products.AttachImage(r.Context(), slug, data, header.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, 200, p)
}

func (s *Server) adminPromos(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := s.promoAdmin.List(r.Context())
		if err != nil {
			http.Error(w, "err", 500)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list})
	case http.MethodPost:
		var p domain.PromoCode
		if err := json.NewDecoder(io.LimitReader(r.Body, 8192)).Decode(&p); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.promoAdmin.Save(r.Context(), &p); err != nil {
			http.Error(w, err.Error(), 422)
			return
		}
		writeJSON(w, 201, p)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) adminPromoByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "method", 405)
		return
	}
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/api/promos/"), "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "promo id", 400)
		return
	}
	if err := s.promoAdmin.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "delete", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

// writeQuoteError maps quote/checkout usecase failures onto 422 with a
// stable payload shape the storefront renders inline.
func writeQuoteError(w http.ResponseWriter, err error) {
	var qerr *usecase.QuoteError
	if errors.As(err, &qerr) {
		body := map[string]any{"ok": false, "error": qerr.Message}
		if qerr.Promo != nil {
			body["promo_error"] = qerr.Promo
		}
		writeJSON(w, 422, body)
		return
	}
	var perr *domain.PromoError
	if errors.As(err, &perr) {
		writeJSON(w, 422, map[string]any{"ok": false, "error": perr.Message, "promo_error": perr})
		return
	}
	log.Error().Err(err).Msg("quote")
	http.Error(w, "internal error", 500)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func secretKey() []byte {
	k := os.Getenv("SESSION_KEY")
	if k == "" {
		k = "dev-insecure"
	}
	return []byte(k)
}

type sessionUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func writeUserSession(w http.ResponseWriter, u *sessionUser) {
	if u == nil {
		http.SetCookie(w, &http.Cookie{Name: "sess", Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: true, SameSite: http.SameSiteStrictMode})
		return
	}
	b, _ := json.Marshal(u)
	h := hmac.New(sha256.New, secretKey())
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	val := sig + "." + base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{Name: "sess", Value: val, Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true, Secure: true, SameSite: http.SameSiteStrictMode})
}

func readUserSession(r *http.Request) *sessionUser {
	c, err := r.Cookie("sess")
	if err != nil || c.Value == "" {
		return nil
	}
	parts := strings.SplitN(c.Value, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	sig, _ := base64.RawURLEncoding.DecodeString(parts[0])
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	h := hmac.New(sha256.New, secretKey())
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		return nil
	}
	var u sessionUser
	if err := json.Unmarshal(payload, &u); err != nil || u.Email == "" {
		return nil
	}
	return &u
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", 500)
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", MaxAge: 300, HttpOnly: true})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), 302)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", 500)
		return
	}
	q := r.URL.Query()
	c, _ := r.Cookie("oauth_state")
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		http.Error(w, "state", 400)
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("oauth exchange")
		http.Error(w, "oauth", 400)
		return
	}
	client := s.oauthCfg.Client(r.Context(), tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil || resp.StatusCode != 200 {
		log.Error().Err(err).Msg("userinfo")
		http.Error(w, "userinfo", 400)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	_ = json.Unmarshal(body, &info)
	if info.Email == "" {
		http.Error(w, "email", 400)
		return
	}
	if s.customers != nil {
		if _, err := s.customers.FindByEmail(r.Context(), info.Email); errors.Is(err, domain.ErrNotFound) {
			_ = s.customers.Save(r.Context(), &domain.Customer{ID: uuid.New(), Email: strings.ToLower(info.Email), Name: info.Name, CreatedAt: time.Now()})
		}
	}
	writeUserSession(w, &sessionUser{Email: strings.ToLower(info.Email), Name: info.Name})
	http.Redirect(w, r, "/", 302)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeUserSession(w, nil)
	http.Redirect(w, r, "/", 302)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	cfgKey := os.Getenv("ADMIN_API_KEY")
	if cfgKey == "" {
		log.Error().Msg("ADMIN_API_KEY missing")
		http.Error(w, "config", 500)
		return
	}
	apiKey := r.Header.Get("X-Admin-Key")
	if apiKey == "" || !hmac.Equal([]byte(apiKey), []byte(cfgKey)) {
		http.Error(w, "unauthorized", 401)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" && len(s.adminAllowed) == 1 {
		for k := range s.adminAllowed {
			email = k
		}
	}
	if _, ok := s.adminAllowed[email]; !ok {
		http.Error(w, "forbidden", 403)
		return
	}
	tok, exp, err := s.issueAdminToken(email, 30*time.Minute)
	if err != nil {
		http.Error(w, "token", 500)
		return
	}
	writeJSON(w, 200, map[string]any{"token": tok, "exp": exp.Unix(), "email": email})
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		tok := strings.TrimSpace(auth[7:])
		if _, err := s.verifyAdminToken(tok); err == nil {
			return true
		}
	}
	if c, err := r.Cookie("admin_token"); err == nil && c.Value != "" {
		if _, err := s.verifyAdminToken(c.Value); err == nil {
			return true
		}
	}
	http.Error(w, "unauthorized", 401)
	return false
}

func (s *Server) issueAdminToken(email string, dur time.Duration) (string, time.Time, error) {
	head := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	exp := time.Now().Add(dur)
	claims := map[string]any{"sub": email, "email": email, "role": "admin", "exp": exp.Unix(), "iat": time.Now().Unix(), "iss": "luckycaps"}
	b, _ := json.Marshal(claims)
	pay := base64.RawURLEncoding.EncodeToString(b)
	unsigned := head + "." + pay
	h := hmac.New(sha256.New, s.adminSecret)
	h.Write([]byte(unsigned))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return unsigned + "." + sig, exp, nil
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("format")
	}
	unsigned := parts[0] + "." + parts[1]
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("sig")
	}
	h := hmac.New(sha256.New, s.adminSecret)
	h.Write([]byte(unsigned))
	if !hmac.Equal(sig, h.Sum(nil)) {
		return "", fmt.Errorf("signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("payload")
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", fmt.Errorf("json")
	}
	role, _ := m["role"].(string)
	email, _ := m["email"].(string)
	expF, _ := m["exp"].(float64)
	if role != "admin" || email == "" {
		return "", fmt.Errorf("claims")
	}
	if time.Now().Unix() > int64(expF) {
		return "", fmt.Errorf("expired")
	}
	if _, ok := s.adminAllowed[strings.ToLower(email)]; !ok {
		return "", fmt.Errorf("not allowed")
	}
	return email, nil
}
