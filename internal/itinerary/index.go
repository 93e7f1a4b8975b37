package itinerary

import "github.com/seaward/offer-service/internal/types"

// compositeKeyIndex maps ship code → sail date → composite key.
// It is owned by Cache and only touched under its lock.
type compositeKeyIndex struct {
	byShip map[string]map[string]string
}

func newCompositeKeyIndex() *compositeKeyIndex {
	return &compositeKeyIndex{byShip: make(map[string]map[string]string)}
}

// rebuild replaces the index with the keys of entries
func (ix *compositeKeyIndex) rebuild(entries map[string]*types.CacheEntry) {
	ix.byShip = make(map[string]map[string]string, len(entries))
	for key, e := range entries {
		ix.add(e.ShipCode, e.SailDate, key)
	}
}

func (ix *compositeKeyIndex) add(ship, date, key string) {
	dates, ok := ix.byShip[ship]
	if !ok {
		dates = make(map[string]string)
		ix.byShip[ship] = dates
	}
	dates[date] = key
}

func (ix *compositeKeyIndex) remove(ship, date string) {
	dates, ok := ix.byShip[ship]
	if !ok {
		return
	}
	delete(dates, date)
	if len(dates) == 0 {
		delete(ix.byShip, ship)
	}
}

func (ix *compositeKeyIndex) lookup(ship, date string) (string, bool) {
	key, ok := ix.byShip[ship][types.NormalizeSailDate(date)]
	return key, ok
}

// ships returns the number of indexed ships
func (ix *compositeKeyIndex) ships() int {
	return len(ix.byShip)
}
