package reservation

import "courtbook/models"

// CalculateTotal is base price per slot plus every add-on, in minor units.
func CalculateTotal(catalog models.Catalog, slotCount int, addons []models.Addon) int64 {
	total := catalog.BasePrice * int64(slotCount)
	for _, a := range addons {
		total += a.Price
	}
	return total
}
