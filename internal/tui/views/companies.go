package views

import (
	"sync"

	"github.com/PreetShah25/arbitra-AI/internal/config"
)

// CompanyPicker holds the configured companies and the selected one. The
// wizard reads it from its own goroutines, so access is synchronized.
type CompanyPicker struct {
	mu        sync.Mutex
	companies []config.Company
	selected  int
}

// NewCompanyPicker creates a picker with the first company selected.
func NewCompanyPicker(companies []config.Company) *CompanyPicker {
	return &CompanyPicker{companies: append([]config.Company(nil), companies...)}
}

// Len returns the number of companies.
func (p *CompanyPicker) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.companies)
}

// Selected returns the selected company and its index.
func (p *CompanyPicker) Selected() (config.Company, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.companies) == 0 {
		return config.Company{}, -1
	}
	return p.companies[p.selected], p.selected
}

// Cycle moves the selection by delta, wrapping at both ends.
func (p *CompanyPicker) Cycle(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.companies)
	if n == 0 {
		return
	}
	p.selected = ((p.selected+delta)%n + n) % n
}

// Select selects ticker if it is configured.
func (p *CompanyPicker) Select(ticker string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.companies {
		if c.Ticker == ticker {
			p.selected = i
			return true
		}
	}
	return false
}

// SelectedTicker implements wizard.CompanySource.
func (p *CompanyPicker) SelectedTicker() string {
	c, _ := p.Selected()
	return c.Ticker
}

// CompanyName implements wizard.CompanySource.
func (p *CompanyPicker) CompanyName(ticker string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.companies {
		if c.Ticker == ticker {
			return c.Name
		}
	}
	return ""
}
