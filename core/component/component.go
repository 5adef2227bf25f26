package component

import "time"

// Component is a reusable UI snippet: the html/css/js sources rendered by the
// preview sandbox. Premium snippets reserve their sources and export for VIP
// members.
type Component struct {
	ID        string    `json:"id" db:"component_id"`
	Title     string    `json:"title" db:"title"`
	Category  string    `json:"category" db:"category"`
	HTML      string    `json:"html" db:"html"`
	CSS       string    `json:"css" db:"css"`
	JS        string    `json:"js" db:"js"`
	Premium   bool      `json:"premium" db:"premium"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Version   int       `json:"-" db:"version"`
}

type ComponentNew struct {
	Title    string `json:"title" validate:"required,max=200"`
	Category string `json:"category" validate:"required,max=50"`
	HTML     string `json:"html"`
	CSS      string `json:"css"`
	JS       string `json:"js"`
	Premium  bool   `json:"premium"`
}

type ComponentUp struct {
	Title    *string `json:"title" validate:"omitempty,max=200"`
	Category *string `json:"category" validate:"omitempty,max=50"`
	HTML     *string `json:"html"`
	CSS      *string `json:"css"`
	JS       *string `json:"js"`
	Premium  *bool   `json:"premium"`
}
