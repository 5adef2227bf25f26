package component

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Component) error {
	const q = `
	INSERT INTO components (component_id, title, category, html, css, js, premium, created_at, updated_at)
	VALUES (:component_id, :title, :category, :html, :css, :js, :premium, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting component: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Component, error) {
	const q = `
	SELECT component_id, title, category, html, css, js, premium, created_at, updated_at, version
	FROM components WHERE component_id = $1`

	var c Component
	if err := db.GetContext(ctx, &c, q, id); err != nil {
		return Component{}, err
	}
	return c, nil
}

func List(ctx context.Context, db *sqlx.DB, category string) ([]Component, error) {
	q := `
	SELECT component_id, title, category, html, css, js, premium, created_at, updated_at, version
	FROM components`

	var args []interface{}
	if category != "" && category != "all" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC`

	components := []Component{}
	if err := db.SelectContext(ctx, &components, q, args...); err != nil {
		return nil, fmt.Errorf("selecting components: %w", err)
	}
	return components, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Component) error {
	const q = `
	UPDATE components SET
		title = :title, category = :category, html = :html, css = :css, js = :js,
		premium = :premium, updated_at = :updated_at, version = version + 1
	WHERE component_id = :component_id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating component[%s]: %w", c.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("component[%s] was modified concurrently", c.ID)
	}
	return nil
}
