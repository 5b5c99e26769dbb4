package cli

import "sync"

// AddressBar is an in-process stand-in for the browser location's query
// string.
type AddressBar struct {
	mu       sync.Mutex
	query    string
	replaced int
}

func NewAddressBar(initial string) *AddressBar {
	return &AddressBar{query: initial}
}

func (a *AddressBar) Query() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

func (a *AddressBar) Replace(rawQuery string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query = rawQuery
	a.replaced++
}

// Replacements counts Replace calls.
func (a *AddressBar) Replacements() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.replaced
}
