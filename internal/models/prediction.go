package models

import "time"

// Vector is an encoded feature row aligned to the expected column list
type Vector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Len returns the number of features
func (v Vector) Len() int {
	return len(v.Values)
}

// Get returns the value of a named column
func (v Vector) Get(column string) (float64, bool) {
	for i, c := range v.Columns {
		if c == column {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Prediction is the outcome of one estimate. It is returned, never stored.
type Prediction struct {
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Formatted string    `json:"formatted"`
	Currency  string    `json:"currency"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is a serialized training artifact as held by a store
type Artifact struct {
	Name        string    `json:"name"`
	Content     []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum"`
	Size        int       `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}
