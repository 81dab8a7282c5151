package riskmodel

import "fmt"

// Universe is an ordered, deduplicated set of asset symbols. It fixes the
// row/column ordering of every matrix built from it and is never mutated
// after construction.
type Universe struct {
	symbols []string
	index   map[string]int
}

// NewUniverse builds a universe from a symbol list, dropping duplicates while
// preserving first-occurrence order.
func NewUniverse(symbols []string) (*Universe, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe requires at least one symbol")
	}

	u := &Universe{
		symbols: make([]string, 0, len(symbols)),
		index:   make(map[string]int, len(symbols)),
	}
	for _, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("universe contains an empty symbol")
		}
		if _, seen := u.index[s]; seen {
			continue
		}
		u.index[s] = len(u.symbols)
		u.symbols = append(u.symbols, s)
	}

	return u, nil
}

// Len returns the number of assets in the universe.
func (u *Universe) Len() int {
	return len(u.symbols)
}

// Symbols returns a copy of the ordered symbol list.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out
}

// Symbol returns the symbol at position i.
func (u *Universe) Symbol(i int) string {
	return u.symbols[i]
}

// Index returns the matrix position of a symbol.
func (u *Universe) Index(symbol string) (int, bool) {
	i, ok := u.index[symbol]
	return i, ok
}
