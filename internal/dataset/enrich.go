package dataset

// Enrich joins clean orders to clean customers on the normalized mobile
// number and returns the snapshot shared by all calculators. Orders without
// a matching customer are excluded from the enriched set and counted; a join
// mismatch is informational, never fatal.
func Enrich(customers []Customer, orders []Order) *Snapshot {
	byMobile := make(map[string]Customer, len(customers))
	for _, c := range customers {
		byMobile[c.MobileNumber] = c
	}

	snap := &Snapshot{
		Customers: customers,
		Orders:    orders,
		Enriched:  make([]EnrichedOrder, 0, len(orders)),
	}

	for _, o := range orders {
		c, ok := byMobile[o.MobileNumber]
		if !ok {
			snap.UnmatchedOrders++
			continue
		}
		snap.Enriched = append(snap.Enriched, EnrichedOrder{
			Order:        o,
			CustomerID:   c.CustomerID,
			CustomerName: c.CustomerName,
			Region:       c.Region,
		})
	}

	return snap
}
