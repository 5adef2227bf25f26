package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/api/weberr"
	"github.com/tuanngo-dev/e-education/validate"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		search := web.QueryParam(r, "search")
		category := web.QueryParam(r, "category")

		courses, err := List(ctx, db, search, category)
		if err != nil {
			return fmt.Errorf("listing courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(fmt.Errorf("course[%s] does not exist", id))
			}
			return fmt.Errorf("fetching course[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		now := time.Now().UTC()
		c := Course{
			ID:            validate.GenerateID(),
			Title:         cn.Title,
			Instructor:    cn.Instructor,
			Category:      cn.Category,
			Price:         cn.Price,
			OriginalPrice: cn.OriginalPrice,
			Duration:      cn.Duration,
			Lessons:       cn.Lessons,
			ImageURL:      cn.ImageURL,
			Level:         cn.Level,
			Badge:         cn.Badge,
			Description:   cn.Description,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(fmt.Errorf("course[%s] does not exist", id))
			}
			return fmt.Errorf("fetching course[%s]: %w", id, err)
		}

		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Instructor != nil {
			c.Instructor = *cu.Instructor
		}
		if cu.Category != nil {
			c.Category = *cu.Category
		}
		if cu.Price != nil {
			c.Price = *cu.Price
		}
		if cu.OriginalPrice != nil {
			c.OriginalPrice = cu.OriginalPrice
		}
		if cu.Duration != nil {
			c.Duration = *cu.Duration
		}
		if cu.Lessons != nil {
			c.Lessons = *cu.Lessons
		}
		if cu.ImageURL != nil {
			c.ImageURL = *cu.ImageURL
		}
		if cu.Level != nil {
			c.Level = *cu.Level
		}
		if cu.Badge != nil {
			c.Badge = cu.Badge
		}
		if cu.Description != nil {
			c.Description = *cu.Description
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			return fmt.Errorf("updating course[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}
