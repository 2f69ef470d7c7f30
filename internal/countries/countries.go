// Package countries loads the reference list of countries a session is
// played on.
package countries

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

//go:embed countries.json
var builtin []byte

// Catalog is an immutable, ordered list of countries indexed by id.
type Catalog struct {
	list []quiz.Country
	byID map[string]quiz.Country
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(builtin))
}

// LoadFile reads a JSON array of {"id", "name"} objects from path. An empty
// path selects the built-in catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening countries file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog. Ids are upper-cased and must be
// unique; names must be non-empty.
func Load(r io.Reader) (*Catalog, error) {
	var raw []quiz.Country
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding countries: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("countries: catalog is empty")
	}

	c := &Catalog{
		list: make([]quiz.Country, 0, len(raw)),
		byID: make(map[string]quiz.Country, len(raw)),
	}
	for i, country := range raw {
		country.ID = strings.ToUpper(strings.TrimSpace(country.ID))
		country.Name = strings.TrimSpace(country.Name)
		if country.ID == "" || country.Name == "" {
			return nil, fmt.Errorf("countries: entry %d needs an id and a name", i)
		}
		if _, dup := c.byID[country.ID]; dup {
			return nil, fmt.Errorf("countries: duplicate id %q", country.ID)
		}
		c.byID[country.ID] = country
		c.list = append(c.list, country)
	}
	return c, nil
}

// All returns a copy of the catalog in file order.
func (c *Catalog) All() []quiz.Country {
	out := make([]quiz.Country, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Catalog) Get(id string) (quiz.Country, bool) {
	country, ok := c.byID[strings.ToUpper(id)]
	return country, ok
}

func (c *Catalog) Len() int { return len(c.list) }
