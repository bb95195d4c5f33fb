package product

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	darkNotes  = "Intensywny, głęboki smak z nutami czekolady i orzechów. Ręcznie zbierane na naszej rodzinnej plantacji w regionie Huila."
	lightNotes = "Delikatny, owocowy smak z nutami cytrusów i kwiatów. Ręcznie zbierane na naszej rodzinnej plantacji w regionie Huila."
)

// DefaultCatalog is the starter assortment loaded into an empty store.
func DefaultCatalog() []Product {
	item := func(title, weight, typ, roast, price, description, image string) Product {
		img := image
		return Product{
			Title:       title,
			Weight:      weight,
			Type:        typ,
			Roast:       roast,
			Price:       decimal.RequireFromString(price),
			Description: description,
			ImageURL:    &img,
			InStock:     true,
		}
	}
	return []Product{
		item("Całe Ziarna - Ciemne Palenie 250g", "250g", "beans", "dark", "49.00", "Idealne do espresso. "+darkNotes, "/images/coffee-dark-250.jpg"),
		item("Całe Ziarna - Ciemne Palenie 1kg", "1kg", "beans", "dark", "169.00", "Idealne do espresso. "+darkNotes, "/images/coffee-dark-1kg.jpg"),
		item("Całe Ziarna - Jasne Palenie 250g", "250g", "beans", "light", "49.00", "Idealne do kawy przelewowej i dripa. "+lightNotes, "/images/coffee-light-250.jpg"),
		item("Całe Ziarna - Jasne Palenie 1kg", "1kg", "beans", "light", "169.00", "Idealne do kawy przelewowej i dripa. "+lightNotes, "/images/coffee-light-1kg.jpg"),
		item("Kawa Mielona - Ciemne Palenie 250g", "250g", "ground", "dark", "52.00", "Świeżo mielona, idealna do espresso. "+darkNotes, "/images/coffee-ground-dark-250.jpg"),
		item("Kawa Mielona - Ciemne Palenie 1kg", "1kg", "ground", "dark", "179.00", "Świeżo mielona, idealna do espresso. "+darkNotes, "/images/coffee-ground-dark-1kg.jpg"),
		item("Kawa Mielona - Jasne Palenie 250g", "250g", "ground", "light", "52.00", "Świeżo mielona, idealna do dripa i przelewu. "+lightNotes, "/images/coffee-ground-light-250.jpg"),
		item("Kawa Mielona - Jasne Palenie 1kg", "1kg", "ground", "light", "179.00", "Świeżo mielona, idealna do dripa i przelewu. "+lightNotes, "/images/coffee-ground-light-1kg.jpg"),
	}
}

// Seed inserts products only when the catalog is empty and reports how many
// were created.
func (s *Service) Seed(ctx context.Context, products []Product) (int, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, p := range products {
		if _, err := s.Create(ctx, p); err != nil {
			return i, fmt.Errorf("seed %q: %w", p.Title, err)
		}
	}
	return len(products), nil
}
