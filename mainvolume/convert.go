package mainvolume

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	errNotNumeric = errors.New("value is not an integer")
	errNegative   = errors.New("value is negative")
	errOverflow   = errors.New("value does not fit in 32 bits")
)

// toUint32 converts a property value coming from a transport into an
// unsigned 32 bits integer. Strings are parsed in base 10, floats must be
// integral.
func toUint32(v any) (uint32, error) {
	if v == nil {
		return 0, errNotNumeric
	}

	switch val := v.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return checkUint32(reflect.ValueOf(val).Uint())

	case int, int8, int16, int32, int64:
		i := reflect.ValueOf(val).Int()
		if i < 0 {
			return 0, errNegative
		}
		return checkUint32(uint64(i))

	case float32:
		return floatToUint32(float64(val))

	case float64:
		return floatToUint32(val)

	case string:
		s := strings.TrimSpace(val)
		if strings.HasPrefix(s, "-") {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				return 0, errNegative
			}
			return 0, errNotNumeric
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return 0, errOverflow
			}
			return 0, errNotNumeric
		}
		return checkUint32(u)

	default:
		return 0, errNotNumeric
	}
}

func floatToUint32(f float64) (uint32, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotNumeric
	}
	if f < 0 {
		return 0, errNegative
	}
	if f > math.MaxUint32 {
		return 0, errOverflow
	}
	return uint32(f), nil
}

func checkUint32(u uint64) (uint32, error) {
	if u > math.MaxUint32 {
		return 0, errOverflow
	}
	return uint32(u), nil
}
