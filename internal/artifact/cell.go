package artifact

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/netip"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CellValue converts a value returned by pgx into something the spreadsheet
// writer stores natively. nil stays nil and becomes an empty cell.
func CellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool, time.Time, time.Duration,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return "\\x" + hex.EncodeToString(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		return numericValue(val)
	case *big.Int:
		return val.String()
	case netip.Prefix:
		return val.String()
	case pgtype.Interval:
		return intervalValue(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil {
			return fmt.Sprint(val)
		}
		if _, same := dv.(driver.Valuer); same {
			return fmt.Sprint(dv)
		}
		return CellValue(dv)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func numericValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		v, err := n.Value()
		if err != nil {
			return nil
		}
		return v
	}
	if !fitsFloat64(n) {
		v, err := n.Value()
		if err != nil {
			return nil
		}
		return v
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		v, _ := n.Value()
		return v
	}
	return f.Float64
}

// maxExactDigits is the number of significant decimal digits a float64
// always round-trips.
const maxExactDigits = 15

// fitsFloat64 reports whether n can be stored as a float64 without losing
// digits. Anything wider is written as its exact decimal text.
func fitsFloat64(n pgtype.Numeric) bool {
	if n.Int == nil {
		return false
	}
	digits := len(new(big.Int).Abs(n.Int).String())
	if digits > maxExactDigits {
		return false
	}
	return n.Exp >= -300 && int(n.Exp)+digits <= 300
}

func intervalValue(iv pgtype.Interval) any {
	if !iv.Valid {
		return nil
	}
	v, err := iv.Value()
	if err != nil {
		return fmt.Sprint(iv)
	}
	return v
}
