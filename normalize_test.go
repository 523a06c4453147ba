package stringdict

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fraugster/stringdict/dictschema"
)

func TestAppendNormalized(t *testing.T) {
	char3 := &dictschema.Column{Name: "c", Kind: dictschema.Char, MaxLength: 3}
	varchar2 := &dictschema.Column{Name: "v", Kind: dictschema.Varchar, MaxLength: 2}
	str := &dictschema.Column{Name: "s", Kind: dictschema.String}

	testData := []struct {
		Col      *dictschema.Column
		In       string
		Expected string
	}{
		{Col: char3, In: "7", Expected: "7  "},
		{Col: char3, In: "42", Expected: "42 "},
		{Col: char3, In: "999", Expected: "999"},
		{Col: char3, In: "12345", Expected: "123"},
		{Col: char3, In: "", Expected: "   "},
		{Col: char3, In: "äöüß", Expected: "äöü"},
		{Col: char3, In: "é", Expected: "é  "},
		{Col: varchar2, In: "7", Expected: "7"},
		{Col: varchar2, In: "999", Expected: "99"},
		{Col: varchar2, In: "日本語", Expected: "日本"},
		{Col: varchar2, In: "", Expected: ""},
		{Col: str, In: "anything goes", Expected: "anything goes"},
		{Col: nil, In: "untyped", Expected: "untyped"},
	}

	for _, tt := range testData {
		got := appendNormalized([]byte("prefix|"), tt.Col, []byte(tt.In))
		require.Equal(t, "prefix|"+tt.Expected, string(got), "%v %q", tt.Col, tt.In)
	}
}

func TestUseDictionary(t *testing.T) {
	testData := []struct {
		Distinct, Total int
		Threshold       float64
		Expected        bool
	}{
		{Distinct: 0, Total: 0, Threshold: 0, Expected: true},
		{Distinct: 0, Total: 0, Threshold: 0.5, Expected: true},
		{Distinct: 1, Total: 100, Threshold: 0, Expected: false},
		{Distinct: 1000, Total: 65535, Threshold: 0.2, Expected: true},
		{Distinct: 1000, Total: 10000, Threshold: 0.2, Expected: true},
		{Distinct: 1000, Total: 5535, Threshold: 0.2, Expected: true},
		{Distinct: 1000, Total: 4999, Threshold: 0.2, Expected: false},
		{Distinct: 20, Total: 100, Threshold: 0.2, Expected: true},
		{Distinct: 21, Total: 100, Threshold: 0.2, Expected: false},
		{Distinct: 100, Total: 100, Threshold: 1, Expected: true},
	}

	for _, tt := range testData {
		require.Equal(t, tt.Expected, useDictionary(tt.Distinct, tt.Total, tt.Threshold), "%+v", tt)
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, th := range []float64{0, 0.2, 0.8, 1} {
		require.NoError(t, validateThreshold(th), "%v", th)
	}
	for _, th := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		require.ErrorIs(t, validateThreshold(th), ErrInvalidThreshold, "%v", th)
	}
}
