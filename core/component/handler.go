package component

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/api/weberr"
	"github.com/tuanngo-dev/e-education/core/claims"
	"github.com/tuanngo-dev/e-education/core/payment"
	"github.com/tuanngo-dev/e-education/validate"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		components, err := List(ctx, db, web.QueryParam(r, "category"))
		if err != nil {
			return fmt.Errorf("listing components: %w", err)
		}

		entitled := isEntitled(ctx, db)
		for i := range components {
			redact(&components[i], entitled)
		}

		return web.Respond(ctx, w, components, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		redact(&c, isEntitled(ctx, db))
		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

// HandleExport streams the snippet sources as a zip archive. Premium snippets
// export only for VIP members.
func HandleExport(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if _, err := claims.Get(ctx); err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if c.Premium && !isEntitled(ctx, db) {
			return weberr.Forbidden(fmt.Errorf("component[%s] requires an active VIP membership", c.ID))
		}

		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		files := map[string]string{
			"index.html": c.HTML,
			"style.css":  c.CSS,
			"script.js":  c.JS,
		}
		for name, body := range files {
			f, err := zw.Create(name)
			if err != nil {
				return fmt.Errorf("creating archive entry %s: %w", name, err)
			}
			if _, err := f.Write([]byte(body)); err != nil {
				return fmt.Errorf("writing archive entry %s: %w", name, err)
			}
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("closing archive: %w", err)
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Title+".zip"))
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing archive to response: %w", err)
		}
		return nil
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn ComponentNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		now := time.Now().UTC()
		c := Component{
			ID:        validate.GenerateID(),
			Title:     cn.Title,
			Category:  cn.Category,
			HTML:      cn.HTML,
			CSS:       cn.CSS,
			JS:        cn.JS,
			Premium:   cn.Premium,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating component: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cu ComponentUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		c, err := fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Category != nil {
			c.Category = *cu.Category
		}
		if cu.HTML != nil {
			c.HTML = *cu.HTML
		}
		if cu.CSS != nil {
			c.CSS = *cu.CSS
		}
		if cu.JS != nil {
			c.JS = *cu.JS
		}
		if cu.Premium != nil {
			c.Premium = *cu.Premium
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			return fmt.Errorf("updating component[%s]: %w", c.ID, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func fetch(ctx context.Context, db *sqlx.DB, id string) (Component, error) {
	if err := validate.CheckID(id); err != nil {
		return Component{}, weberr.BadRequest(err)
	}

	c, err := Fetch(ctx, db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Component{}, weberr.NotFound(fmt.Errorf("component[%s] does not exist", id))
		}
		return Component{}, fmt.Errorf("fetching component[%s]: %w", id, err)
	}
	return c, nil
}

// redact blanks the sources of premium snippets for non-VIP viewers. The
// metadata stays visible so the catalog can advertise them.
func redact(c *Component, entitled bool) {
	if c.Premium && !entitled {
		c.HTML, c.CSS, c.JS = "", "", ""
	}
}

func isEntitled(ctx context.Context, db *sqlx.DB) bool {
	clm, err := claims.Get(ctx)
	if err != nil {
		return false
	}

	vip, err := payment.Entitlement(ctx, db, clm.UserID)
	if err != nil {
		return false
	}
	return vip.IsVip
}
