package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-overview/internal/domain"
)

type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// money coerces an amount. Absent or unparseable amounts are zero.
func (f fields) money(key string) domain.Money {
	switch v := f[key].(type) {
	case json.Number:
		m, err := domain.ParseMoney(v.String())
		if err != nil {
			return domain.Zero
		}
		return m
	case string:
		m, err := domain.ParseMoney(v)
		if err != nil {
			return domain.Zero
		}
		return m
	default:
		return domain.Zero
	}
}

func (f fields) optionalMoney(key string) *domain.Money {
	switch f[key].(type) {
	case json.Number, string:
		m := f.money(key)
		return &m
	default:
		return nil
	}
}

// date coerces a calendar date. Invalid dates are the zero Date, which sorts last.
func (f fields) date(key string) domain.Date {
	s, ok := f[key].(string)
	if !ok {
		return domain.Date{}
	}
	d, err := domain.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return domain.Date{}
	}
	return d
}

// boolean accepts JSON booleans, 0/1 and "true"/"false". Anything else is false.
func (f fields) boolean(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case json.Number:
		n, err := v.Int64()
		return err == nil && n != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

func (f fields) id(key string) int64 {
	switch v := f[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123,
	domain.DateLayout,
}

func (f fields) timestamp(key string) time.Time {
	s, ok := f[key].(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
