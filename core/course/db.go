package course

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const columns = `course_id, title, instructor, category, rating, reviews, students, price,
	original_price, duration, lessons, image_url, level, badge, description,
	created_at, updated_at, version`

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses (course_id, title, instructor, category, rating, reviews, students, price,
		original_price, duration, lessons, image_url, level, badge, description, created_at, updated_at)
	VALUES (:course_id, :title, :instructor, :category, :rating, :reviews, :students, :price,
		:original_price, :duration, :lessons, :image_url, :level, :badge, :description, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Course, error) {
	q := `SELECT ` + columns + ` FROM courses WHERE course_id = $1`

	var c Course
	if err := db.GetContext(ctx, &c, q, id); err != nil {
		return Course{}, err
	}
	return c, nil
}

// List returns the catalog newest first. A non-empty search matches title or
// instructor case-insensitively; a category other than "all" filters exactly.
func List(ctx context.Context, db *sqlx.DB, search string, category string) ([]Course, error) {
	q := `SELECT ` + columns + ` FROM courses`

	var filters []string
	var args []interface{}

	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		filters = append(filters, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(instructor) LIKE $%d)", n, n))
	}

	if category != "" && category != "all" {
		args = append(args, category)
		filters = append(filters, fmt.Sprintf("category = $%d", len(args)))
	}

	if len(filters) > 0 {
		q += " WHERE " + strings.Join(filters, " AND ")
	}
	q += " ORDER BY created_at DESC"

	courses := []Course{}
	if err := db.SelectContext(ctx, &courses, q, args...); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}
	return courses, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	UPDATE courses SET
		title = :title, instructor = :instructor, category = :category, rating = :rating,
		reviews = :reviews, students = :students, price = :price, original_price = :original_price,
		duration = :duration, lessons = :lessons, image_url = :image_url, level = :level,
		badge = :badge, description = :description, updated_at = :updated_at, version = version + 1
	WHERE course_id = :course_id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating course[%s]: %w", c.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("course[%s] was modified concurrently", c.ID)
	}
	return nil
}
