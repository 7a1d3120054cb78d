package bot

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"shopbot/internal/domain"
)

// ErrNotCommand input does not have the pricing command shape
var ErrNotCommand = errors.New("not a pricing command")

const pricingFields = 6

// PricingFormat is shown to operators after a malformed command.
const PricingFormat = "productId | UNIT | price | step | min | max"

// PricingCommand sets the variant of a product for one unit of sale.
type PricingCommand struct {
	ProductID int64
	Unit      domain.Unit
	Price     decimal.Decimal
	Step      decimal.Decimal
	Min       decimal.Decimal
	Max       decimal.Decimal
}

// IsPricingCommand reports whether text has the shape of a pricing command.
func IsPricingCommand(text string) bool {
	return strings.Count(text, "|") == pricingFields-1
}

// ParsePricingCommand parses `productId | UNIT | price | step | min | max`.
// Text of another shape returns ErrNotCommand; a command with bad values
// returns a validation error.
func ParsePricingCommand(text string) (PricingCommand, error) {
	if !IsPricingCommand(text) {
		return PricingCommand{}, ErrNotCommand
	}
	f := strings.Split(text, "|")
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}

	pid, err := parseID(f[0])
	if err != nil {
		return PricingCommand{}, domain.Validationf("product id %q is not a positive number", f[0])
	}
	unit, err := domain.ParseUnit(f[1])
	if err != nil {
		return PricingCommand{}, err
	}
	cmd := PricingCommand{ProductID: pid, Unit: unit}
	for _, n := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"price", f[2], &cmd.Price},
		{"step", f[3], &cmd.Step},
		{"min", f[4], &cmd.Min},
		{"max", f[5], &cmd.Max},
	} {
		v, err := parseAmount(n.raw)
		if err != nil {
			return PricingCommand{}, domain.Validationf("%s %q is not a number", n.name, n.raw)
		}
		*n.dst = v
	}
	if err := cmd.Variant().Validate(); err != nil {
		return PricingCommand{}, err
	}
	return cmd, nil
}

func (c PricingCommand) Variant() domain.Variant {
	return domain.Variant{
		ProductID: c.ProductID,
		Unit:      c.Unit,
		Price:     c.Price,
		Step:      c.Step,
		Min:       c.Min,
		Max:       c.Max,
	}
}

// parseAmount accepts a decimal comma as well as a point.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

// parseMeta reads product name and description from either
// "name | description" or a first line name followed by the description.
func parseMeta(text string) (name, description string, err error) {
	text = strings.TrimSpace(text)
	if before, after, ok := strings.Cut(text, "|"); ok {
		name, description = before, after
	} else if before, after, ok := strings.Cut(text, "\n"); ok {
		name, description = before, after
	} else {
		name = text
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return "", "", domain.Validationf("product name is empty")
	}
	return name, description, nil
}
