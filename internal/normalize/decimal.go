// Package normalize holds the field formatters used to shape provider
// payloads: fixed-precision decimals, whitespace sanitizing and the
// single-quoted note text with its chunking rules.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ripsnc/internal/domain"
)

// MoneyPrecision is the number of fraction digits of monetary fields.
const MoneyPrecision = 2

// FormatDecimal renders value with exactly precision fraction digits and a
// period separator. Strings may use a comma as the decimal separator.
func FormatDecimal(value any, precision int) (string, error) {
	d, err := ParseDecimal(value)
	if err != nil {
		return "", err
	}
	return d.StringFixed(int32(precision)), nil
}

// FormatMoney is FormatDecimal with MoneyPrecision.
func FormatMoney(value any) (string, error) {
	return FormatDecimal(value, MoneyPrecision)
}

// ParseDecimal reads a number or numeric string as a decimal.
func ParseDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return parseDecimalString(v.String())
	case string:
		return parseDecimalString(v)
	case nil:
		return decimal.Zero, fmt.Errorf("%w: null", domain.ErrInvalidNumericValue)
	default:
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidNumericValue, value)
	}
}

func parseDecimalString(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidNumericValue, raw)
	}
	return d, nil
}
