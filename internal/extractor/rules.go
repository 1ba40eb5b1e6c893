package extractor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-yaml/yaml"
)

// Built-in category vocabulary.
const (
	CategoryGroceries     = "Groceries"
	CategoryFood          = "Food"
	CategoryDrinks        = "Drinks"
	CategoryTransport     = "Transport"
	CategoryEntertainment = "Entertainment"
	CategoryFurniture     = "Furniture"
	CategoryShopping      = "Shopping"
	CategoryBooks         = "Books"
	CategoryMiscellaneous = "Miscellaneous"
)

// CategoryRule maps a set of keywords to one category.
type CategoryRule struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Rules is the data the extractor is configured with: an ordered category
// table, the fallback category and the month-name table.
// Rule order is the classification priority.
type Rules struct {
	DefaultCategory string         `yaml:"default_category" json:"default_category"`
	Categories      []CategoryRule `yaml:"categories" json:"categories"`
	Months          []string       `yaml:"months" json:"months"`
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	return Rules{
		DefaultCategory: CategoryMiscellaneous,
		Categories: []CategoryRule{
			{
				Name:     CategoryGroceries,
				Keywords: []string{"grocery", "groceries", "supermarket", "vegetable", "fruit", "milk", "eggs", "bread", "kirana"},
			},
			{
				Name:     CategoryFood,
				Keywords: []string{"food", "lunch", "dinner", "breakfast", "snack", "pizza", "burger", "restaurant", "meal", "biryani", "pani puri", "samosa", "dosa", "sandwich", "swiggy", "zomato"},
			},
			{
				Name:     CategoryDrinks,
				Keywords: []string{"coffee", "coke", "pepsi", "soda", "juice", "drink", "beer", "latte", "smoothie"},
			},
			{
				Name:     CategoryTransport,
				Keywords: []string{"uber", "taxi", "rickshaw", "bus fare", "bus ticket", "train", "metro", "fuel", "petrol", "diesel", "flight", "parking", "toll"},
			},
			{
				Name:     CategoryEntertainment,
				Keywords: []string{"movie", "cinema", "netflix", "spotify", "concert", "game", "theatre", "theater"},
			},
			{
				Name:     CategoryFurniture,
				Keywords: []string{"furniture", "sofa", "chair", "wardrobe", "cabinet", "shelf", "desk", "mattress"},
			},
			{
				Name:     CategoryShopping,
				Keywords: []string{"shopping", "clothes", "shirt", "shoes", "jeans", "amazon", "flipkart", "electronics", "gift"},
			},
			{
				Name:     CategoryBooks,
				Keywords: []string{"book", "novel", "kindle", "magazine", "stationery"},
			},
		},
		Months: []string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
	}
}

// LoadRules reads a YAML rules file. A missing file yields DefaultRules.
// Sections left empty in the file fall back to the built-in ones.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRules(), nil
	}
	if err != nil {
		return Rules{}, fmt.Errorf("LoadRules: read %q: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rules document and validates it.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("ParseRules: %w", err)
	}

	def := DefaultRules()
	if r.DefaultCategory == "" {
		r.DefaultCategory = def.DefaultCategory
	}
	if len(r.Categories) == 0 {
		r.Categories = def.Categories
	}
	if len(r.Months) == 0 {
		r.Months = def.Months
	}

	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate checks that the tables are usable.
func (r Rules) Validate() error {
	if strings.TrimSpace(r.DefaultCategory) == "" {
		return errors.New("rules: default category is required")
	}
	if len(r.Months) != 12 {
		return fmt.Errorf("rules: expected 12 month names, got %d", len(r.Months))
	}
	for i, m := range r.Months {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("rules: month %d has an empty name", i+1)
		}
	}
	for i, c := range r.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("rules: category %d has an empty name", i)
		}
	}
	return nil
}

// Vocabulary lists every category the extractor can emit, in rule order,
// followed by the default category.
func (r Rules) Vocabulary() []string {
	seen := make(map[string]bool, len(r.Categories)+1)
	out := make([]string, 0, len(r.Categories)+1)
	for _, c := range r.Categories {
		if !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	if !seen[r.DefaultCategory] {
		out = append(out, r.DefaultCategory)
	}
	return out
}
