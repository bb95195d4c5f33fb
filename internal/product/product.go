package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a coffee in the catalog and maps to the `products` table.
// JSON tags follow the camelCase convention used elsewhere in the project.
type Product struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Weight      string          `json:"weight"`
	Type        string          `json:"type"`
	Roast       string          `json:"roast"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	InStock     bool            `json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Patch carries a partial admin update; nil fields are left untouched.
type Patch struct {
	Slug        *string          `json:"slug,omitempty"`
	Title       *string          `json:"title,omitempty"`
	Weight      *string          `json:"weight,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Roast       *string          `json:"roast,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Description *string          `json:"description,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
	InStock     *bool            `json:"inStock,omitempty"`
}

func (p Patch) apply(dst *Product) {
	if p.Slug != nil {
		dst.Slug = *p.Slug
	}
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Weight != nil {
		dst.Weight = *p.Weight
	}
	if p.Type != nil {
		dst.Type = *p.Type
	}
	if p.Roast != nil {
		dst.Roast = *p.Roast
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.ImageURL != nil {
		dst.ImageURL = p.ImageURL
	}
	if p.InStock != nil {
		dst.InStock = *p.InStock
	}
}

// AllowedTypes contains the supported product forms.
var AllowedTypes = []string{"beans", "ground"}

var slugReplacer = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n",
	"ó", "o", "ś", "s", "ź", "z", "ż", "z",
)

// Slugify derives a URL slug from a product title.
func Slugify(title string) string {
	s := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(title)))
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func validSlug(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	return true
}

func validateProductPayload(p *Product) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		errs["title"] = "title is required"
	}
	if strings.TrimSpace(p.Weight) == "" {
		errs["weight"] = "weight is required"
	}
	if strings.TrimSpace(p.Roast) == "" {
		errs["roast"] = "roast is required"
	}
	valid := false
	for _, t := range AllowedTypes {
		if p.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		errs["type"] = "type must be beans or ground"
	}
	if p.Price.IsNegative() {
		errs["price"] = "price must be >= 0"
	} else if !p.Price.Equal(p.Price.Round(2)) {
		errs["price"] = "price must have at most 2 decimal places"
	}
	if !validSlug(p.Slug) {
		errs["slug"] = "slug may only contain lowercase letters, digits and dashes"
	}
	return errs
}
