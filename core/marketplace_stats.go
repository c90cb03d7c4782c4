package core

import "context"

// MarketStats summarises the `sales` table: floor is the lowest recorded
// price, high the highest, volume the number of completed sales, and avg
// the mean sale price.
type MarketStats struct {
	Floor  Sats
	High   Sats
	Volume int
	Avg    float64
}

// Stats computes MarketStats over every recorded sale.
func Stats(ctx context.Context, store Store) (MarketStats, error) {
	sales, err := store.ListSales(ctx)
	if err != nil {
		return MarketStats{}, err
	}
	if len(sales) == 0 {
		return MarketStats{}, nil
	}

	var sum uint64
	stats := MarketStats{Floor: sales[0].PriceSats, High: sales[0].PriceSats}
	for _, s := range sales {
		if s.PriceSats < stats.Floor {
			stats.Floor = s.PriceSats
		}
		if s.PriceSats > stats.High {
			stats.High = s.PriceSats
		}
		sum += uint64(s.PriceSats)
	}
	stats.Volume = len(sales)
	stats.Avg = float64(sum) / float64(len(sales))
	return stats, nil
}
