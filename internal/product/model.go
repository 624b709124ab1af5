// Package product keeps the global catalog devices and releases refer to.
package product

type Form struct {
	Name        string `json:"name" binding:"required,max=255"`
	SKU         string `json:"sku" binding:"required,max=128"`
	Category    string `json:"category" binding:"max=128"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type Filter struct {
	Category   string
	Search     string
	ActiveOnly bool
}
