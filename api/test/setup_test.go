package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/tuanngo-dev/e-education/api"
	"github.com/tuanngo-dev/e-education/config"
	"github.com/tuanngo-dev/e-education/database"
)

const WebhookSecret = "whsec_testing"

// TestEnv runs the whole stack for one test: a throwaway postgres container,
// mock payment providers, and the API served over httptest.
type TestEnv struct {
	t *testing.T

	DB     *sqlx.DB
	Server *httptest.Server
	URL    string

	Stripe *mockStripe
	Paypal *mockPaypal

	UserEmail  string
	UserPass   string
	AdminEmail string
	AdminPass  string

	client *http.Client
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}
	pool.MaxWait = time.Minute

	resource, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purging postgres container: %v", err)
		}
	})

	cfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       "localhost:" + resource.GetPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = database.Open(cfg)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ms := &mockStripe{}
	stripeSrv := httptest.NewServer(ms.handle())
	t.Cleanup(stripeSrv.Close)

	strp := &stripecl.API{}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp.Init("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	mp := &mockPaypal{}
	paypalSrv := httptest.NewServer(mp.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("client-id", "client-secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("fetching mock paypal token: %w", err)
	}

	session := scs.New()
	session.Lifetime = time.Hour

	mux := api.APIMux(api.APIConfig{
		Log:     logger,
		DB:      db,
		Session: session,
		Paypal:  pp,
		Stripe:  strp,
		StripeCfg: config.Stripe{
			WebhookSecret: WebhookSecret,
			SuccessURL:    "http://localhost:5173/payment/success",
			CancelURL:     "http://localhost:5173/payment/cancel",
		},
		PaypalCfg: config.Paypal{
			ReturnURL: "http://localhost:5173/payment/success",
			CancelURL: "http://localhost:5173/payment/cancel",
		},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}

	env := &TestEnv{
		t:          t,
		DB:         db,
		Server:     srv,
		URL:        srv.URL,
		Stripe:     ms,
		Paypal:     mp,
		UserEmail:  "user@test.com",
		UserPass:   "user-pass-123",
		AdminEmail: "admin@test.com",
		AdminPass:  "admin-pass-123",
		client:     &http.Client{Jar: jar},
	}

	if err := env.signup("Test User", env.UserEmail, env.UserPass); err != nil {
		return nil, err
	}
	if err := env.signup("Test Admin", env.AdminEmail, env.AdminPass); err != nil {
		return nil, err
	}

	const promote = `UPDATE users SET role = 'ADMIN' WHERE email = $1`
	if _, err := db.Exec(promote, env.AdminEmail); err != nil {
		return nil, fmt.Errorf("promoting admin: %w", err)
	}

	return env, nil
}

// Client returns the shared http client; it carries the session cookie of
// whoever logged in last.
func (te *TestEnv) Client() *http.Client {
	return te.client
}

// SessionToken digs the current session cookie out of the jar, for tests that
// drive the typed Go client instead of raw requests.
func (te *TestEnv) SessionToken() string {
	u, err := url.Parse(te.URL)
	if err != nil {
		te.t.Fatalf("parsing server url: %v", err)
	}

	for _, c := range te.client.Jar.Cookies(u) {
		if c.Name == "session" {
			return c.Value
		}
	}
	return ""
}

func (te *TestEnv) signup(name string, email string, pass string) error {
	body := map[string]string{"name": name, "email": email, "password": pass}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	w, err := http.Post(te.URL+"/auth/signup", "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("signing up %s: %w", email, err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		return fmt.Errorf("signing up %s: status code %s", email, w.Status)
	}
	return nil
}

func (te *TestEnv) Login(email string, pass string) error {
	body := map[string]string{"email": email, "password": pass}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	w, err := te.client.Post(te.URL+"/auth/login", "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("logging in %s: %w", email, err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("logging in %s: status code %s", email, w.Status)
	}
	return nil
}

func (te *TestEnv) Logout() error {
	w, err := te.client.Post(te.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logging out: status code %s", w.Status)
	}
	return nil
}
