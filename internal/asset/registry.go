package asset

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Registry is a thread-safe registry of known tokens and their reference prices.
type Registry struct {
	byID     map[AssetID]*Asset
	bySymbol map[string]*Asset
	prices   map[AssetID]Price
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string]*Asset),
		prices:   make(map[AssetID]Price),
	}
}

// Register adds an asset, replacing any previous entry for the same mint.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[a.ID()] = a
	r.bySymbol[a.Symbol()] = a
}

// SetReferencePrice records the SOL value of one unit of the asset.
func (r *Registry) SetReferencePrice(id AssetID, inSOL decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("asset: %s not registered", id)
	}
	r.prices[id] = NewPrice(a, inSOL, time.Now())
	return nil
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetByMint retrieves an asset by its base58 mint.
func (r *Registry) GetByMint(mint string) (*Asset, bool) {
	id, err := ParseAssetID(mint)
	if err != nil {
		return nil, false
	}
	return r.Get(id)
}

// GetBySymbol retrieves an asset by ticker.
func (r *Registry) GetBySymbol(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySymbol[symbol]
	return a, ok
}

// ReferencePrice returns the SOL price of the asset.
func (r *Registry) ReferencePrice(id AssetID) (Price, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prices[id]
	return p, ok
}

// ValueInSOL values a quantity of mint, in token units, in SOL.
func (r *Registry) ValueInSOL(mint string, units decimal.Decimal) (decimal.Decimal, error) {
	id, err := ParseAssetID(mint)
	if err != nil {
		return decimal.Zero, err
	}

	p, ok := r.ReferencePrice(id)
	if !ok {
		return decimal.Zero, fmt.Errorf("asset: no reference price for %s", mint)
	}
	return p.Value(units), nil
}

// Symbol returns the ticker of mint, or a shortened mint when unknown.
func (r *Registry) Symbol(mint string) string {
	if a, ok := r.GetByMint(mint); ok {
		return a.Symbol()
	}
	if len(mint) > 8 {
		return mint[:4] + ".." + mint[len(mint)-4:]
	}
	return mint
}

// All returns all registered assets.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
