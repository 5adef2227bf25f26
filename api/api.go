package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/tuanngo-dev/e-education/api/middleware"
	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/config"
	"github.com/tuanngo-dev/e-education/core/auth"
	"github.com/tuanngo-dev/e-education/core/component"
	"github.com/tuanngo-dev/e-education/core/course"
	"github.com/tuanngo-dev/e-education/core/payment"
	"github.com/tuanngo-dev/e-education/core/user"
	"github.com/tuanngo-dev/e-education/rate"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Paypal           *paypal.Client
	Stripe           *stripecl.API
	StripeCfg        config.Stripe
	PaypalCfg        config.Paypal
	AuthLimiter      *rate.Limiter
	Providers        map[string]auth.Provider
	LoginRedirectURL string
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	opt := auth.LoadClaims(cfg.Session)
	admin := auth.Admin(cfg.Session)

	var limited web.Middleware
	if cfg.AuthLimiter != nil {
		limited = middleware.RateLimit(cfg.AuthLimiter)
	}

	gateways := map[string]payment.Gateway{
		"stripe": &payment.StripeGateway{API: cfg.Stripe, Cfg: cfg.StripeCfg},
		"paypal": &payment.PaypalGateway{Client: cfg.Paypal, Cfg: cfg.PaypalCfg},
	}

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/components/{id}/export", component.HandleExport(cfg.DB), authen)
	a.Handle(http.MethodGet, "/components/{id}", component.HandleShow(cfg.DB), opt)
	a.Handle(http.MethodGet, "/components", component.HandleList(cfg.DB), opt)
	a.Handle(http.MethodPost, "/components", component.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/components/{id}", component.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/payments/plans", payment.HandleListPlans(cfg.DB))
	a.Handle(http.MethodGet, "/payments/vip-status", payment.HandleVIPStatus(cfg.DB), opt)
	a.Handle(http.MethodPost, "/payments/create-order", payment.HandleCreateOrder(cfg.DB, gateways), authen)
	a.Handle(http.MethodGet, "/payments/verify/{order_code}", payment.HandleVerify(cfg.DB), authen)
	a.Handle(http.MethodGet, "/payments/history", payment.HandleHistory(cfg.DB), authen)
	a.Handle(http.MethodPost, "/payments/stripe/capture", payment.HandleStripeCapture(cfg.DB, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/payments/paypal/{order_code}/capture", payment.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/payments/{order_code}/cancel", payment.HandleCancel(cfg.DB), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
