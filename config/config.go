package config

import "time"

// Config collects every tunable of the server. Values are parsed from the
// environment with the EDU prefix (e.g. EDU_WEB_ADDRESS).
type Config struct {
	Web    Web
	Cors   Cors
	DB     DB
	Stripe Stripe
	Paypal Paypal
	Oauth  Oauth
	Limit  Limit
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string `conf:"default:http://localhost:5173"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:eeducation"`
	DisableTLS bool   `conf:"default:true"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:5173/payment/success"`
	CancelURL     string `conf:"default:http://localhost:5173/payment/cancel"`
}

type Paypal struct {
	ClientID  string
	Secret    string `conf:"mask"`
	URL       string `conf:"default:https://api.sandbox.paypal.com"`
	ReturnURL string `conf:"default:http://localhost:5173/payment/success"`
	CancelURL string `conf:"default:http://localhost:5173/payment/cancel"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:5173"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Limit struct {
	AuthRPS    float64 `conf:"default:1"`
	AuthBurst  int     `conf:"default:5"`
	AuthExpiry int     `conf:"default:60"`
}
