package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Product is a sellable item; prices live on its variants
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Unit unit of sale
type Unit string

const (
	UnitKG Unit = "KG"
	UnitL  Unit = "L"
	UnitPC Unit = "PC"
)

var units = []Unit{UnitKG, UnitL, UnitPC}

// Units returns the closed set of supported units of sale.
func Units() []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// ParseUnit is case-insensitive and rejects anything outside the closed set.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range units {
		if u == known {
			return u, nil
		}
	}
	return "", Validationf("unknown unit %q, expected one of KG, L, PC", s)
}

func (u Unit) String() string { return string(u) }

// Label human readable unit suffix
func (u Unit) Label() string {
	switch u {
	case UnitKG:
		return "kg"
	case UnitL:
		return "l"
	case UnitPC:
		return "pc"
	default:
		return strings.ToLower(string(u))
	}
}

// GeoPoint coordinates shared by the buyer
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CartLine one buyer's chosen quantity of one variant
type CartLine struct {
	BuyerID   int64           `json:"buyer_id"`
	ProductID int64           `json:"product_id"`
	Unit      Unit            `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// PricedLine is a cart line joined with the current catalog data.
type PricedLine struct {
	CartLine
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Step        decimal.Decimal `json:"step"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartView priced snapshot of a buyer's cart
type CartView struct {
	BuyerID int64           `json:"buyer_id"`
	Lines   []PricedLine    `json:"lines"`
	Total   decimal.Decimal `json:"total"`
}

func (c CartView) Empty() bool { return len(c.Lines) == 0 }
