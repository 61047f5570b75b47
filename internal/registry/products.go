package registry

import (
	"fmt"
	"math"

	"github.com/openretail/pos-reconciler/internal/blobstore"
	"github.com/openretail/pos-reconciler/internal/transform"
)

// priceTolerance is the maximum price difference under which two
// otherwise-identical product observations are the same entity.
const priceTolerance = 0.001

// nullFlavour is how an absent flavour is serialized in the catalog.
const nullFlavour = "None"

// Product is one entry of the product catalog. Products are never
// mutated after creation; a price change creates a new product id.
type Product struct {
	ID      int
	Name    string
	Flavour string // empty means null
	Size    string
	Price   float64
}

// identityKey is the exact 4-tuple that determines product identity.
// Price is rounded to two decimals; flavour text enters the key
// verbatim (no case or whitespace normalization).
type identityKey struct {
	name    string
	flavour string
	size    string
	price   string
}

func keyFor(name, flavour, size string, price float64) identityKey {
	return identityKey{
		name:    name,
		flavour: flavourKey(flavour),
		size:    size,
		price:   fmt.Sprintf("%.2f", price),
	}
}

func flavourKey(flavour string) string {
	if flavour == "" {
		return nullFlavour
	}
	return flavour
}

// ProductCatalog is the in-memory working copy of the product catalog:
// the ordered product list plus the identity-key index. It is owned
// exclusively by the invocation that loaded it.
type ProductCatalog struct {
	products []Product
	index    map[identityKey]int
	nextID   int
	dirty    bool
	version  blobstore.Version
}

// ResolveOrCreate returns the id of the product matching the candidate's
// identity key, creating a new catalog entry on miss. The exact-tuple
// index is consulted first; a tolerance scan over the catalog handles
// prices within ±0.001 of an existing entry. Reports whether a new
// product was created.
func (c *ProductCatalog) ResolveOrCreate(cand transform.Candidate) (id int, created bool) {
	key := keyFor(cand.Name, cand.Flavour, cand.Size, cand.Price)
	if id, ok := c.index[key]; ok {
		return id, false
	}

	for _, p := range c.products {
		if p.Name == cand.Name &&
			flavourKey(p.Flavour) == flavourKey(cand.Flavour) &&
			p.Size == cand.Size &&
			math.Abs(p.Price-cand.Price) < priceTolerance {
			return p.ID, false
		}
	}

	id = c.nextID
	c.products = append(c.products, Product{
		ID:      id,
		Name:    cand.Name,
		Flavour: cand.Flavour,
		Size:    cand.Size,
		Price:   cand.Price,
	})
	c.index[key] = id
	c.nextID++
	c.dirty = true
	return id, true
}

// Len returns the number of catalog entries.
func (c *ProductCatalog) Len() int {
	return len(c.products)
}

// NextID returns the id the next created product would receive.
func (c *ProductCatalog) NextID() int {
	return c.nextID
}

// Dirty reports whether the catalog grew since it was loaded.
func (c *ProductCatalog) Dirty() bool {
	return c.dirty
}

// Products returns the catalog entries in id order.
func (c *ProductCatalog) Products() []Product {
	return c.products
}
