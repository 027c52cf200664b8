package app

import (
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/sorianoB28/luckycaps-sub000/internal/adapters/assets/cloudinary"
	"github.com/sorianoB28/luckycaps-sub000/internal/adapters/httpserver"
	"github.com/sorianoB28/luckycaps-sub000/internal/adapters/payments/stripecheckout"
	"github.com/sorianoB28/luckycaps-sub000/internal/adapters/repo/postgres"
	"github.com/sorianoB28/luckycaps-sub000/internal/adapters/shipping/shippo"
	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
	"github.com/sorianoB28/luckycaps-sub000/internal/usecase"
)

type App struct {
	DB          *gorm.DB
	ProductUC   *usecase.ProductUC
	QuoteUC     *usecase.QuoteUC
	CheckoutUC  *usecase.CheckoutUC
	OrderUC     *usecase.OrderUC
	ShipmentUC  *usecase.ShipmentUC
	PromoUC     *usecase.PromoUC
	PromoAdmin  *usecase.PromoAdminUC
	Customers   domain.CustomerRepo
	Gateway     *stripecheckout.Gateway
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	promoRepo := postgres.NewPromoRepo(db)
	checkoutRepo := postgres.NewCheckoutRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	shipmentRepo := postgres.NewShipmentRepo(db)
	custRepo := postgres.NewCustomerRepo(db)

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	gateway := stripecheckout.New(
		os.Getenv("STRIPE_SECRET_KEY"),
		os.Getenv("STRIPE_WEBHOOK_SECRET"),
		baseURL,
	)
	carrier := shippo.NewGateway(os.Getenv("SHIPPO_API_TOKEN"))
	assets := cloudinary.NewStore(
		os.Getenv("CLOUDINARY_CLOUD_NAME"),
		os.Getenv("CLOUDINARY_API_KEY"),
		os.Getenv("CLOUDINARY_API_SECRET"),
	)

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	promoUC := &usecase.PromoUC{Promos: promoRepo}
	quoteUC := &usecase.QuoteUC{Products: prodRepo, Promos: promoUC}

	a := &App{
		DB:         db,
		ProductUC:  &usecase.ProductUC{Products: prodRepo, Assets: assets},
		QuoteUC:    quoteUC,
		PromoUC:    promoUC,
		PromoAdmin: &usecase.PromoAdminUC{Promos: promoRepo},
		CheckoutUC: &usecase.CheckoutUC{
			Checkouts: checkoutRepo,
			Orders:    orderRepo,
			Quotes:    quoteUC,
			Gateway:   gateway,
		},
		OrderUC: &usecase.OrderUC{Orders: orderRepo, Shipments: shipmentRepo},
		ShipmentUC: &usecase.ShipmentUC{
			Orders:    orderRepo,
			Shipments: shipmentRepo,
			Carrier:   carrier,
			Assets:    assets,
			Origin:    originAddress(),
		},
		Customers:   custRepo,
		Gateway:     gateway,
		OAuthConfig: oauthCfg,
	}
	return a, nil
}

func originAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:    envOr("SHIP_FROM_NAME", "Lucky Caps"),
		Street1: envOr("SHIP_FROM_STREET", "90 Crown St"),
		City:    envOr("SHIP_FROM_CITY", "New Haven"),
		State:   envOr("SHIP_FROM_STATE", "CT"),
		Zip:     envOr("SHIP_FROM_ZIP", "06510"),
		Country: envOr("SHIP_FROM_COUNTRY", "US"),
		Phone:   os.Getenv("SHIP_FROM_PHONE"),
		Email:   os.Getenv("SHIP_FROM_EMAIL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Deps{
		Products:   a.ProductUC,
		Quotes:     a.QuoteUC,
		Checkouts:  a.CheckoutUC,
		Orders:     a.OrderUC,
		Shipments:  a.ShipmentUC,
		Promos:     a.PromoUC,
		PromoAdmin: a.PromoAdmin,
		Customers:  a.Customers,
		Gateway:    a.Gateway,
		Webhooks:   a.Gateway,
		OAuth:      a.OAuthConfig,
	})
}

// Migrate runs schema migrations at startup. The duplicate-session
// unique indexes are the hard backstop behind idempotent finalization,
// so they are created explicitly even though the tags also declare them.
func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{},
		&domain.PromoCode{},
		&domain.PendingCheckout{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.Shipment{},
		&domain.Customer{},
	); err != nil {
		return err
	}

	if err := a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_stripe_session ON orders (stripe_session_id)").Error; err != nil {
		return err
	}
	if err := a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_checkouts_stripe_session ON pending_checkouts (stripe_session_id) WHERE stripe_session_id IS NOT NULL").Error; err != nil {
		return err
	}
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders (status, created_at DESC)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_promo_codes_code_upper ON promo_codes (UPPER(code))").Error
	return nil
}
