package course

import "time"

// Course is a catalog entry. Prices are stored in the smallest unit of the
// site currency.
type Course struct {
	ID            string    `json:"id" db:"course_id"`
	Title         string    `json:"title" db:"title"`
	Instructor    string    `json:"instructor" db:"instructor"`
	Category      string    `json:"category" db:"category"`
	Rating        float64   `json:"rating" db:"rating"`
	Reviews       int       `json:"reviews" db:"reviews"`
	Students      int       `json:"students" db:"students"`
	Price         int64     `json:"price" db:"price"`
	OriginalPrice *int64    `json:"originalPrice" db:"original_price"`
	Duration      string    `json:"duration" db:"duration"`
	Lessons       int       `json:"lessons" db:"lessons"`
	ImageURL      string    `json:"image" db:"image_url"`
	Level         string    `json:"level" db:"level"`
	Badge         *string   `json:"badge" db:"badge"`
	Description   string    `json:"description" db:"description"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
	Version       int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Instructor    string  `json:"instructor" validate:"required,max=100"`
	Category      string  `json:"category" validate:"required,max=50"`
	Price         int64   `json:"price" validate:"gte=0"`
	OriginalPrice *int64  `json:"originalPrice" validate:"omitempty,gte=0"`
	Duration      string  `json:"duration" validate:"max=50"`
	Lessons       int     `json:"lessons" validate:"gte=0"`
	ImageURL      string  `json:"image" validate:"omitempty,url"`
	Level         string  `json:"level" validate:"max=50"`
	Badge         *string `json:"badge" validate:"omitempty,max=50"`
	Description   string  `json:"description"`
}

type CourseUp struct {
	Title         *string `json:"title" validate:"omitempty,max=200"`
	Instructor    *string `json:"instructor" validate:"omitempty,max=100"`
	Category      *string `json:"category" validate:"omitempty,max=50"`
	Price         *int64  `json:"price" validate:"omitempty,gte=0"`
	OriginalPrice *int64  `json:"originalPrice" validate:"omitempty,gte=0"`
	Duration      *string `json:"duration" validate:"omitempty,max=50"`
	Lessons       *int    `json:"lessons" validate:"omitempty,gte=0"`
	ImageURL      *string `json:"image" validate:"omitempty,url"`
	Level         *string `json:"level" validate:"omitempty,max=50"`
	Badge         *string `json:"badge" validate:"omitempty,max=50"`
	Description   *string `json:"description"`
}
