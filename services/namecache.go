package services

import (
	"context"
	"errors"
	"sync"

	"pharma-deck/extract"
	"pharma-deck/models"
	"pharma-deck/providers/rxnorm"
	"pharma-deck/storage"
)

// Resolution ist das Ergebnis einer Namensauflösung: RxCUI und ID der gespeicherten Substanz.
type Resolution struct {
	RxCUI      string
	CompoundID string
}

// NameResolver löst einen Freitextnamen in eine RxCUI auf.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// CompoundLookup findet eine gespeicherte Substanz über ihre RxCUI.
type CompoundLookup interface {
	CompoundByRxCUI(ctx context.Context, rxcui string) (*models.Compound, error)
}

type cacheEntry struct {
	rxcui      string
	compoundID string
}

// NameCache merkt sich Auflösungen von Interaktionspartnern für die Lebensdauer des Prozesses.
// Auch negative Ergebnisse werden gemerkt, Netzwerkfehler nicht. Ein bekannter Name ohne
// gespeicherte Substanz wird nur in der Datenbank erneut gesucht, nie erneut bei RxNav.
type NameCache struct {
	resolver NameResolver
	lookup   CompoundLookup

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewNameCache erstellt einen leeren Cache.
func NewNameCache(resolver NameResolver, lookup CompoundLookup) *NameCache {
	return &NameCache{resolver: resolver, lookup: lookup, entries: make(map[string]cacheEntry)}
}

// Resolve liefert die Auflösung zu raw oder nil, wenn der Name keiner gespeicherten Substanz entspricht.
func (c *NameCache) Resolve(ctx context.Context, raw string) (*Resolution, error) {
	key := extract.NormalizeName(raw)
	if key == "" {
		return nil, nil
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		rxcui, err := c.resolver.Resolve(ctx, raw)
		switch {
		case errors.Is(err, rxnorm.ErrNotFound):
			rxcui = ""
		case err != nil:
			return nil, err
		}
		entry = cacheEntry{rxcui: rxcui}
	}

	if entry.rxcui != "" && entry.compoundID == "" {
		compound, err := c.lookup.CompoundByRxCUI(ctx, entry.rxcui)
		switch {
		case err == nil:
			entry.compoundID = compound.ID
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if entry.compoundID == "" {
		return nil, nil
	}
	return &Resolution{RxCUI: entry.rxcui, CompoundID: entry.compoundID}, nil
}

// Len liefert die Zahl der gemerkten Namen.
func (c *NameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear verwirft alle Einträge.
func (c *NameCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
