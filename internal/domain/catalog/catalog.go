// Package catalog holds the vegetables and premade boxes on sale, loaded
// from INI-style price lists.
package catalog

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/money"
)

// Vegetable is a catalog vegetable with its price per kind unit
// (per kg, per unit or per pack).
type Vegetable struct {
	Kind  cart.Kind       `json:"kind"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Box is a premade box template. Contents lists one vegetable name per slot.
type Box struct {
	Size     string          `json:"size"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Contents []string        `json:"contents"`
}

// NotFoundError is returned when a vegetable or box is not in the catalog.
type NotFoundError struct {
	Kind cart.Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q is not in the catalog", e.Kind, e.Name)
}

// BoxContentsError rejects a box customisation whose slot count does not
// match the template.
type BoxContentsError struct {
	Size string
	Want int
	Got  int
}

func (e *BoxContentsError) Error() string {
	return fmt.Sprintf("%s box holds %d items, got %d", e.Size, e.Want, e.Got)
}

// Catalog is an immutable price list.
type Catalog struct {
	vegetables []Vegetable
	boxes      []Box
}

// Load parses a vegetables list and a box list. Vegetables are grouped in
// [weight], [unit] and [pack] sections of "name = price" keys; each box is
// a section named by its size holding a price key and item1..itemN keys.
// Prices are rounded to cents.
func Load(vegetables, boxes []byte) (*Catalog, error) {
	veg, err := ini.Load(vegetables)
	if err != nil {
		return nil, errors.Wrap(err, "parse vegetables")
	}
	box, err := ini.Load(boxes)
	if err != nil {
		return nil, errors.Wrap(err, "parse boxes")
	}

	c := &Catalog{}
	for _, sec := range veg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		kind := cart.Kind(strings.ToLower(sec.Name()))
		if !kind.IsVegetable() {
			return nil, errors.Errorf("vegetables: unknown section [%s]", sec.Name())
		}
		for _, key := range sec.Keys() {
			price, err := parsePrice(key.Value())
			if err != nil {
				return nil, errors.Wrapf(err, "vegetables: [%s] %s", sec.Name(), key.Name())
			}
			c.vegetables = append(c.vegetables, Vegetable{Kind: kind, Name: key.Name(), Price: price})
		}
	}

	for _, sec := range box.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		b, err := c.parseBox(sec)
		if err != nil {
			return nil, errors.Wrapf(err, "boxes: [%s]", sec.Name())
		}
		c.boxes = append(c.boxes, b)
	}
	return c, nil
}

// LoadFiles reads the two price lists from disk.
func LoadFiles(vegetablesPath, boxesPath string) (*Catalog, error) {
	veg, err := os.ReadFile(vegetablesPath)
	if err != nil {
		return nil, errors.Wrap(err, "read vegetables")
	}
	box, err := os.ReadFile(boxesPath)
	if err != nil {
		return nil, errors.Wrap(err, "read boxes")
	}
	return Load(veg, box)
}

func (c *Catalog) parseBox(sec *ini.Section) (Box, error) {
	size := strings.ToLower(sec.Name())
	b := Box{Size: size, Name: boxName(size)}

	if !sec.HasKey("price") {
		return Box{}, errors.New("missing price")
	}
	price, err := parsePrice(sec.Key("price").Value())
	if err != nil {
		return Box{}, errors.Wrap(err, "price")
	}
	b.Price = price

	type slot struct {
		n    int
		name string
	}
	var slots []slot
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if !strings.HasPrefix(name, "item") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "item"))
		if err != nil {
			return Box{}, errors.Errorf("bad item key %q", key.Name())
		}
		veg, ok := c.vegetable(key.Value())
		if !ok {
			return Box{}, &NotFoundError{Kind: "vegetable", Name: key.Value()}
		}
		slots = append(slots, slot{n: n, name: veg.Name})
	}
	if len(slots) == 0 {
		return Box{}, errors.New("box has no items")
	}
	slices.SortFunc(slots, func(a, b slot) int { return a.n - b.n })
	for _, s := range slots {
		b.Contents = append(b.Contents, s.name)
	}
	return b, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$")))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "price %q", s)
	}
	if p.IsNegative() {
		return decimal.Zero, errors.Errorf("negative price %q", s)
	}
	if !money.Within(p, 6, 4) {
		return decimal.Zero, errors.Errorf("price %q out of range", s)
	}
	return money.Round(p), nil
}

func boxName(size string) string {
	if size == "" {
		return "Box"
	}
	return strings.ToUpper(size[:1]) + size[1:] + " Box"
}

// ByKind returns the vegetables sold by the given kind.
func (c *Catalog) ByKind(kind cart.Kind) []Vegetable {
	var out []Vegetable
	for _, v := range c.vegetables {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Boxes returns every box template in file order.
func (c *Catalog) Boxes() []Box {
	out := make([]Box, len(c.boxes))
	for i, b := range c.boxes {
		b.Contents = slices.Clone(b.Contents)
		out[i] = b
	}
	return out
}

// Lookup finds a vegetable by kind and name. Names match case-insensitively.
func (c *Catalog) Lookup(kind cart.Kind, name string) (Vegetable, error) {
	for _, v := range c.vegetables {
		if v.Kind == kind && strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return Vegetable{}, &NotFoundError{Kind: kind, Name: name}
}

// vegetable finds a vegetable of any kind by name.
func (c *Catalog) vegetable(name string) (Vegetable, bool) {
	name = strings.TrimSpace(name)
	for _, v := range c.vegetables {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Vegetable{}, false
}

// Box returns the template for size, e.g. "small".
func (c *Catalog) Box(size string) (Box, error) {
	for _, b := range c.boxes {
		if strings.EqualFold(b.Size, size) {
			b.Contents = slices.Clone(b.Contents)
			return b, nil
		}
	}
	return Box{}, &NotFoundError{Kind: cart.KindBox, Name: size}
}

// BoxContents resolves the contents of a box. An empty replacement list
// keeps the template; otherwise every slot is replaced and each name must be
// a catalog vegetable.
func (c *Catalog) BoxContents(size string, replacements []string) ([]cart.BoxContent, error) {
	b, err := c.Box(size)
	if err != nil {
		return nil, err
	}
	names := b.Contents
	if len(replacements) > 0 {
		if len(replacements) != len(b.Contents) {
			return nil, &BoxContentsError{Size: b.Size, Want: len(b.Contents), Got: len(replacements)}
		}
		names = make([]string, len(replacements))
		for i, r := range replacements {
			v, ok := c.vegetable(r)
			if !ok {
				return nil, &NotFoundError{Kind: "vegetable", Name: r}
			}
			names[i] = v.Name
		}
	}

	out := make([]cart.BoxContent, len(names))
	for i, n := range names {
		out[i] = cart.BoxContent{Name: n, Quantity: decimal.NewFromInt(1)}
	}
	return out, nil
}

// Selection is a customer's choice of a catalog product. For boxes Name is
// the box size and Contents optionally replaces the template slots.
type Selection struct {
	Kind     cart.Kind
	Name     string
	Quantity decimal.Decimal
	Contents []string
}

// AddTo prices the selection from the catalog and appends it to c.
func (c *Catalog) AddTo(crt *cart.Cart, sel Selection) (cart.LineItem, error) {
	if sel.Kind == cart.KindBox {
		b, err := c.Box(sel.Name)
		if err != nil {
			return cart.LineItem{}, err
		}
		contents, err := c.BoxContents(b.Size, sel.Contents)
		if err != nil {
			return cart.LineItem{}, err
		}
		return crt.Add(cart.KindBox, b.Name, b.Price, sel.Quantity, contents)
	}
	if !sel.Kind.Valid() {
		return cart.LineItem{}, &cart.UnknownKindError{Kind: sel.Kind}
	}
	v, err := c.Lookup(sel.Kind, sel.Name)
	if err != nil {
		return cart.LineItem{}, err
	}
	return crt.Add(v.Kind, v.Name, v.Price, sel.Quantity, nil)
}
