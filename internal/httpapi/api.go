package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"beybuilmek.com/internal/auth"
	"beybuilmek.com/internal/obs"
	"beybuilmek.com/internal/order"
	"beybuilmek.com/internal/payment"
	"beybuilmek.com/internal/user"
)

// ReadyProbe checks readiness (e.g. a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the collaborators and policy the HTTP layer needs.
type Options struct {
	Users    *user.Service
	Issuer   *auth.Issuer
	Cookies  auth.CookiePolicy
	Orders   order.Store
	Checkout *payment.Initiator
	Webhooks *payment.Reconciler

	ReadyProbe  ReadyProbe
	Version     string
	CORSOrigins []string

	RateBurst  int
	RatePerSec int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	users      *user.Service
	issuer     *auth.Issuer
	cookies    auth.CookiePolicy
	orders     order.Store
	checkout   *payment.Initiator
	webhooks   *payment.Reconciler
	readyProbe ReadyProbe
	version    string

	corsOrigins []string
	rateBurst   int
	ratePerSec  int
}

// New wires the routes. The webhook route is the only one that must see the
// request body untouched; it never goes through decodeJSON.
func New(opts Options) *API {
	a := &API{
		mux:         http.NewServeMux(),
		users:       opts.Users,
		issuer:      opts.Issuer,
		cookies:     opts.Cookies,
		orders:      opts.Orders,
		checkout:    opts.Checkout,
		webhooks:    opts.Webhooks,
		readyProbe:  opts.ReadyProbe,
		version:     opts.Version,
		corsOrigins: opts.CORSOrigins,
		rateBurst:   opts.RateBurst,
		ratePerSec:  opts.RatePerSec,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 100
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}

	// auth
	a.mux.HandleFunc("/api/v1/register", a.handleRegister)
	a.mux.HandleFunc("/api/v1/login", a.handleLogin)
	a.mux.HandleFunc("/api/v1/logout", a.handleLogout)
	a.mux.HandleFunc("/api/v1/me", a.authenticated(a.handleMe))

	// orders
	a.mux.HandleFunc("/api/v1/orders", a.authenticated(a.handleOrdersCollection))
	a.mux.HandleFunc("/api/v1/orders/", a.authenticated(a.handleOrderResource))

	// payment
	a.mux.HandleFunc("/api/v1/payment/checkout_session", a.authenticated(a.handleCheckoutSession))
	a.mux.HandleFunc("/api/v1/payment/webhook", a.handleWebhook)

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = CORS(h, a.corsOrigins)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
