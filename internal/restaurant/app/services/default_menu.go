package services

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"moms-kitchen/internal/restaurant/domain/models"
)

//go:embed default_menu.yaml
var defaultMenuYAML []byte

type seedItem struct {
	Name     string  `yaml:"name"`
	Price    float64 `yaml:"price"`
	Category string  `yaml:"category"`
	Image    string  `yaml:"image"`
	IsVeg    bool    `yaml:"is_veg"`
}

// DefaultMenu returns the built-in catalog.
func DefaultMenu() ([]models.MenuItem, error) {
	return decodeMenu(defaultMenuYAML)
}

// LoadMenu reads a catalog from path, or the built-in one when path is empty.
func LoadMenu(path string) ([]models.MenuItem, error) {
	if path == "" {
		return DefaultMenu()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu %s: %w", path, err)
	}
	return decodeMenu(data)
}

func decodeMenu(data []byte) ([]models.MenuItem, error) {
	var raw []seedItem
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}

	items := make([]models.MenuItem, 0, len(raw))
	for i, r := range raw {
		item := models.MenuItem{
			Name:     r.Name,
			Price:    decimal.NewFromFloat(r.Price),
			Category: r.Category,
			Image:    r.Image,
			IsVeg:    r.IsVeg,
		}
		if err := ValidateMenuItem(item); err != nil {
			return nil, fmt.Errorf("menu item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}
