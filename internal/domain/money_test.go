package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"500", "500.00"},
		{"1234.5", "1234.50"},
		{"1 234,50", "1234.50"},
		{"99kr", "99.00"},
		{"-12.3", "-12.30"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMoney(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}

	_, err := ParseMoney("abc")
	assert.Error(t, err)
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
		D Money `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "7.25", "c": null, "d": ""}`), &v))
	assert.Equal(t, "12.50", v.A.String())
	assert.Equal(t, "7.25", v.B.String())
	assert.True(t, v.C.IsZero())
	assert.True(t, v.D.IsZero())

	out, err := json.Marshal(MoneyFromFloat(200.5))
	require.NoError(t, err)
	assert.Equal(t, "200.5", string(out))
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	got := Sum(MoneyFromFloat(0.1), MoneyFromFloat(0.2))
	assert.True(t, got.Equal(MoneyFromFloat(0.3)), "decimal sums must not drift: %s", got)
	assert.Equal(t, "300.00kr", MoneyFromInt(300).Display())
}
