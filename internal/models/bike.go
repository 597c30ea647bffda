package models

import (
	"fmt"
	"strings"
)

// Size is a frame size a bike model is stocked in
type Size string

const (
	SizeSmall  Size = "Small"
	SizeMedium Size = "Medium"
	SizeLarge  Size = "Large"
)

// Sizes lists every stocked size in display order
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

// Valid reports whether s is one of the stocked sizes
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// ParseSize accepts a size name in any letter case
func ParseSize(value string) (Size, error) {
	for _, s := range Sizes {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown size %q", value)
}

// Capacity is the number of bikes of one model owned per size
type Capacity struct {
	Small  int `bson:"small" json:"small"`
	Medium int `bson:"medium" json:"medium"`
	Large  int `bson:"large" json:"large"`
}

// Of returns the capacity for size, or 0 for an unknown size
func (c Capacity) Of(size Size) int {
	switch size {
	case SizeSmall:
		return c.Small
	case SizeMedium:
		return c.Medium
	case SizeLarge:
		return c.Large
	}
	return 0
}

// BySize expands the capacity into a per-size map
func (c Capacity) BySize() map[Size]int {
	return map[Size]int{
		SizeSmall:  c.Small,
		SizeMedium: c.Medium,
		SizeLarge:  c.Large,
	}
}

// BikeCatalogEntry is one rentable bike model as stored in the catalog collection
type BikeCatalogEntry struct {
	ID          string   `bson:"_id" json:"id"`
	Name        string   `bson:"name" json:"name"`
	Type        string   `bson:"type,omitempty" json:"type,omitempty"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string   `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Price       float64  `bson:"price" json:"price"`
	Capacity    Capacity `bson:"sizes" json:"sizes"`
}
