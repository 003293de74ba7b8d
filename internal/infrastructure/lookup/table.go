package lookup

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/vitos/currency_rates/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var defaultTable []byte

type tableFile struct {
	Countries  []domain.Country                           `yaml:"countries"`
	Currencies map[domain.CountryCode]domain.CurrencyCode `yaml:"currencies"`
}

// Table is a read-only country to currency lookup.
type Table struct {
	countries  []domain.Country
	currencies map[domain.CountryCode]domain.CurrencyCode
}

// Default returns the table shipped with the binary.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a table from a YAML file; an empty path yields Default.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lookup table: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lookup table: %w", err)
	}
	if len(f.Countries) == 0 {
		return nil, fmt.Errorf("lookup table has no countries")
	}

	seen := make(map[domain.CountryCode]bool, len(f.Countries))
	for _, c := range f.Countries {
		if c.Code == "" {
			return nil, fmt.Errorf("lookup table: country without code")
		}
		if seen[c.Code] {
			return nil, fmt.Errorf("lookup table: duplicate country %s", c.Code)
		}
		seen[c.Code] = true
		if _, ok := f.Currencies[c.Code]; !ok {
			return nil, fmt.Errorf("lookup table: no currency for %s", c.Code)
		}
	}

	return &Table{countries: f.Countries, currencies: f.Currencies}, nil
}

func (t *Table) CurrencyFor(country domain.CountryCode) (domain.CurrencyCode, bool) {
	c, ok := t.currencies[country]
	return c, ok
}

// Countries returns the selectable countries in display order.
func (t *Table) Countries() []domain.Country {
	out := make([]domain.Country, len(t.countries))
	copy(out, t.countries)
	return out
}
