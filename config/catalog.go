package config

import (
	"fmt"

	"courtbook/models"
	"courtbook/services/slots"
)

// CatalogEntry is a selectable activity or location as written in config.yaml.
type CatalogEntry struct {
	Key         string `mapstructure:"key"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
}

type AddonEntry struct {
	Key         string `mapstructure:"key"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Price       int64  `mapstructure:"price"`
}

type PeriodEntry struct {
	Key   string `mapstructure:"key"`
	Title string `mapstructure:"title"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// CatalogConfig is the CATALOG section of config.yaml.
type CatalogConfig struct {
	Activities []CatalogEntry `mapstructure:"activities"`
	Locations  []CatalogEntry `mapstructure:"locations"`
	Periods    []PeriodEntry  `mapstructure:"periods"`
	Addons     []AddonEntry   `mapstructure:"addons"`
}

func (c *CatalogConfig) applyDefaults() {
	if len(c.Activities) == 0 {
		c.Activities = []CatalogEntry{
			{Key: "pickleball", Title: "Pickleball"},
			{Key: "padel", Title: "Padel"},
		}
	}
	if len(c.Locations) == 0 {
		c.Locations = []CatalogEntry{
			{Key: "main", Title: "Main Centre", Description: "Courts 1-4"},
		}
	}
	if len(c.Periods) == 0 {
		c.Periods = []PeriodEntry{
			{Key: "morning", Title: "Morning", Start: "06:00", End: "10:30"},
			{Key: "midday", Title: "Midday", Start: "10:30", End: "15:00"},
			{Key: "afternoon", Title: "Afternoon", Start: "15:00", End: "19:30"},
			{Key: "evening", Title: "Evening", Start: "19:30", End: "24:00"},
		}
	}
	if len(c.Addons) == 0 {
		c.Addons = []AddonEntry{
			{Key: "gym", Name: "Gym Access", Description: "Steam / Sauna", Price: 2000},
			{Key: "pool", Name: "Pool Access", Description: "Steam / Sauna", Price: 2000},
		}
	}
}

// BuildCatalog converts the configured catalog into its runtime form.
// Prices in config are whole currency units; the catalog carries minor units.
func (c Config) BuildCatalog() (models.Catalog, error) {
	cat := models.Catalog{
		Brand:         c.BrandName,
		MembershipURL: c.MembershipURL,
		BasePrice:     c.DefaultBookingAmount * 100,
		Currency:      c.Currency,
		Symbol:        c.CurrencySymbol,
		MaxSlots:      c.MaxSlotsPerBooking,
	}
	for _, a := range c.Catalog.Activities {
		cat.Activities = append(cat.Activities, models.Option{Key: a.Key, Title: a.Title, Description: a.Description})
	}
	for _, l := range c.Catalog.Locations {
		cat.Locations = append(cat.Locations, models.Option{Key: l.Key, Title: l.Title, Description: l.Description})
	}
	for _, a := range c.Catalog.Addons {
		cat.Addons = append(cat.Addons, models.Addon{Key: a.Key, Name: a.Name, Description: a.Description, Price: a.Price * 100})
	}
	for _, p := range c.Catalog.Periods {
		window, err := slots.Parse(p.Start + " - " + p.End)
		if err != nil {
			return models.Catalog{}, fmt.Errorf("catalog period %s: %w", p.Key, err)
		}
		cat.Periods = append(cat.Periods, models.Period{Key: p.Key, Title: p.Title, Start: window.Start, End: window.End})
	}
	return cat, nil
}
