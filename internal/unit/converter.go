// Package unit converts household quantities to and from integer base units.
//
// All ledger arithmetic happens on the integer base quantity (grams, millilitres, count), so summing any
// number of stock entries is exact. Only the final conversion back to a display unit rounds.
package unit

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Type string

const (
	Weight Type = "weight"
	Volume Type = "volume"
	Count  Type = "count"
)

const (
	BaseWeight = "g"
	BaseVolume = "ml"
	BaseCount  = "count"
)

var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrUnsupportedUnit   = errors.New("unsupported unit")
	ErrIncompatibleUnits = errors.New("incompatible units")
)

// Base is a quantity expressed in the canonical unit of its type.
type Base struct {
	Quantity int64
	Type     Type
	Unit     string
}

type definition struct {
	typ    Type
	factor decimal.Decimal
}

func def(t Type, factor string) definition {
	return definition{typ: t, factor: decimal.RequireFromString(factor)}
}

// factors are base units per one unit. oz is the weight ounce; floz the fluid ounce.
var factors = map[string]definition{
	"g":  def(Weight, "1"),
	"kg": def(Weight, "1000"),
	"mg": def(Weight, "0.001"),
	"lb": def(Weight, "454"),
	"oz": def(Weight, "28"),

	"ml":     def(Volume, "1"),
	"l":      def(Volume, "1000"),
	"cl":     def(Volume, "10"),
	"dl":     def(Volume, "100"),
	"floz":   def(Volume, "30"),
	"cup":    def(Volume, "240"),
	"tbsp":   def(Volume, "15"),
	"tsp":    def(Volume, "5"),
	"pint":   def(Volume, "473"),
	"quart":  def(Volume, "946"),
	"gallon": def(Volume, "3785"),

	"count":  def(Count, "1"),
	"piece":  def(Count, "1"),
	"each":   def(Count, "1"),
	"pack":   def(Count, "1"),
	"can":    def(Count, "1"),
	"bottle": def(Count, "1"),
	"box":    def(Count, "1"),
	"bag":    def(Count, "1"),
	"jar":    def(Count, "1"),
	"loaf":   def(Count, "1"),
	"slice":  def(Count, "1"),
	"bunch":  def(Count, "1"),
}

var synonyms = map[string]string{
	"gram": "g", "grams": "g", "gr": "g", "gm": "g", "gms": "g", "gramme": "g", "grammes": "g",
	"kilogram": "kg", "kilograms": "kg", "kilo": "kg", "kilos": "kg", "kgs": "kg",
	"milligram": "mg", "milligrams": "mg", "mgs": "mg",
	"lbs": "lb", "pound": "lb", "pounds": "lb",
	"ounce": "oz", "ounces": "oz", "ozs": "oz",

	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "mls": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "ltr": "l", "lt": "l",
	"centiliter": "cl", "centiliters": "cl", "centilitre": "cl", "centilitres": "cl",
	"deciliter": "dl", "deciliters": "dl", "decilitre": "dl", "decilitres": "dl",
	"fl oz": "floz", "fl. oz": "floz", "fl.oz": "floz", "fluid ounce": "floz", "fluid ounces": "floz",
	"cups": "cup",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbs": "tbsp", "tbsps": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsps": "tsp",
	"pints": "pint", "pt": "pint",
	"quarts": "quart", "qt": "quart",
	"gallons": "gallon", "gal": "gallon",

	"pcs": "piece", "pc": "piece", "pieces": "piece", "unit": "piece", "units": "piece",
	"ct": "count", "cnt": "count",
	"ea": "each",
	"packs": "pack", "pk": "pack", "package": "pack", "packages": "pack",
	"cans": "can", "bottles": "bottle", "boxes": "box", "bags": "bag", "jars": "jar",
	"loaves": "loaf", "slices": "slice", "bunches": "bunch",
}

// Normalize lower-cases and trims raw, then maps synonyms and plurals to a canonical token.
// Unrecognized tokens are returned normalized but otherwise unchanged.
func Normalize(raw string) string {
	s := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	s = strings.TrimSuffix(s, ".")
	if canonical, ok := synonyms[s]; ok {
		return canonical
	}
	return s
}

// TypeOf reports the quantity type of a unit. Unknown units are treated as count.
func TypeOf(token string) Type {
	if d, ok := factors[Normalize(token)]; ok {
		return d.typ
	}
	return Count
}

// BaseUnitOf returns the canonical base unit for a type.
func BaseUnitOf(t Type) string {
	switch t {
	case Weight:
		return BaseWeight
	case Volume:
		return BaseVolume
	default:
		return BaseCount
	}
}

// Compatible reports whether two units measure the same quantity type.
func Compatible(u1, u2 string) bool {
	return TypeOf(u1) == TypeOf(u2)
}

// resolve picks the conversion for token. The ambiguous "oz" becomes the fluid ounce
// when contextUnit is a volume unit; without context it stays the weight ounce.
func resolve(token, contextUnit string) (string, definition, error) {
	u := Normalize(token)
	if u == "oz" && contextUnit != "" && TypeOf(contextUnit) == Volume {
		u = "floz"
	}
	d, ok := factors[u]
	if !ok {
		return u, definition{}, fmt.Errorf("%w: %q", ErrUnsupportedUnit, token)
	}
	return u, d, nil
}

// Lookup resolves token like ToBase does and reports its type, failing for unknown units.
func Lookup(token, contextUnit string) (Type, error) {
	_, d, err := resolve(token, contextUnit)
	if err != nil {
		return "", err
	}
	return d.typ, nil
}

// ToBase converts quantity of fromUnit into an integer base quantity, rounding half away from zero.
//
// Quantities that are zero, negative, NaN or infinite fail with ErrInvalidQuantity. So does a
// positive quantity that rounds to zero base units: 0.4 pieces rounds to 0 count and
// 0.2 mg rounds to 0 g, and neither is recorded as an empty movement.
func ToBase(quantity float64, fromUnit, contextUnit string) (Base, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return Base{}, fmt.Errorf("%w: %v must be greater than zero", ErrInvalidQuantity, quantity)
	}

	_, d, err := resolve(fromUnit, contextUnit)
	if err != nil {
		return Base{}, err
	}

	q := decimal.NewFromFloat(quantity)
	var base int64
	if d.typ == Count {
		base = q.Round(0).IntPart()
	} else {
		base = q.Mul(d.factor).Round(0).IntPart()
	}
	if base <= 0 {
		return Base{}, fmt.Errorf("%w: %v %s is less than one %s", ErrInvalidQuantity, quantity, Normalize(fromUnit), BaseUnitOf(d.typ))
	}

	return Base{Quantity: base, Type: d.typ, Unit: BaseUnitOf(d.typ)}, nil
}

// FromBase converts a base quantity into toUnit.
//
// Count units return the integer unchanged. Weight and volume results are rounded to 2 decimal
// places, so the value can differ from the exact quotient by up to 0.005 of toUnit. Converting
// the rounded value back with ToBase can therefore land one base unit away for large factors.
func FromBase(baseQuantity int64, toUnit, contextUnit string) (float64, error) {
	_, d, err := resolve(toUnit, contextUnit)
	if err != nil {
		return 0, err
	}
	if d.typ == Count {
		return float64(baseQuantity), nil
	}
	return decimal.NewFromInt(baseQuantity).DivRound(d.factor, 2).InexactFloat64(), nil
}

// Convert composes ToBase and FromBase. When contextUnit is empty the source unit
// disambiguates an "oz" target.
func Convert(quantity float64, fromUnit, toUnit, contextUnit string) (float64, error) {
	base, err := ToBase(quantity, fromUnit, contextUnit)
	if err != nil {
		return 0, err
	}

	targetContext := contextUnit
	if targetContext == "" {
		targetContext = fromUnit
	}
	_, target, err := resolve(toUnit, targetContext)
	if err != nil {
		return 0, err
	}
	if target.typ != base.Type {
		return 0, fmt.Errorf("%w: %s (%s) to %s (%s)", ErrIncompatibleUnits, fromUnit, base.Type, toUnit, target.typ)
	}

	return FromBase(base.Quantity, toUnit, targetContext)
}
