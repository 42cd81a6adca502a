package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_Accepts(t *testing.T) {
	testCases := []struct {
		name string
		typ  AttrValueType
		raw  string
		want DataValue
	}{
		{"ref from uint", TypeRef, "42", EntID(42)},
		{"int positive", TypeInt, "7", Int(7)},
		{"int negative", TypeInt, "-7", Int(-7)},
		{"string", TypeString, `"hello"`, String("hello")},
		{"bool true", TypeBool, "true", Bool(true)},
		{"bool false", TypeBool, "false", Bool(false)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.typ.Coerce(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerce_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		typ  AttrValueType
		raw  string
	}{
		{"ref from negative", TypeRef, "-1"},
		{"ref from string", TypeRef, `"42"`},
		{"int from float", TypeInt, "1.5"},
		{"int from exponent", TypeInt, "1e3"},
		{"int from string", TypeInt, `"7"`},
		{"string from number", TypeString, "7"},
		{"bool from number", TypeBool, "1"},
		{"empty input", TypeInt, ""},
		{"int from null", TypeInt, "null"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.typ.Coerce(json.RawMessage(tc.raw))
			require.Error(t, err)

			var ce *CoercionError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestAttrValueType_IsRefType(t *testing.T) {
	assert.True(t, TypeRef.IsRefType())
	assert.False(t, TypeInt.IsRefType())
	assert.False(t, TypeString.IsRefType())
	assert.False(t, TypeBool.IsRefType())
}

func TestAttrIndexing_IsUniqueIndex(t *testing.T) {
	assert.True(t, IndexUnique.IsUniqueIndex())
	assert.False(t, IndexNone.IsUniqueIndex())
}

func TestValidity_RoundTrip(t *testing.T) {
	vld := Validity(1_700_000_000_000_000)
	assert.Equal(t, vld, NewValidity(vld.Time()))
}
