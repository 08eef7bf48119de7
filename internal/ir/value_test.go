package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysUTF16Order(t *testing.T) {
	// U+E000 sorts after the surrogate pair of U+10000 in UTF-16.
	obj := IRObject{"\uE000": IRInt(1), "\U00010000": IRInt(2)}
	assert.Equal(t, []string{"\U00010000", "\uE000"}, obj.SortedKeys())
}

func TestIRObjectAccessors(t *testing.T) {
	obj := IRObject{
		"amount":   IRInt(7),
		"to":       IRString("actor-1"),
		"balances": IRObject{"actor-1": IRInt(3)},
	}

	n, ok := obj.Int("amount")
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = obj.Int("to")
	assert.False(t, ok, "string value must not read as int")

	assert.Equal(t, int64(-1), obj.IntOr("missing", -1))

	s, ok := obj.String("to")
	assert.True(t, ok)
	assert.Equal(t, "actor-1", s)

	assert.Equal(t, int64(3), obj.Object("balances").IntOr("actor-1", 0))
	assert.Nil(t, obj.Object("amount"))
}

func TestIRObjectCloneIsDeep(t *testing.T) {
	orig := IRObject{
		"nested": IRObject{"n": IRInt(1)},
		"list":   IRArray{IRInt(1)},
	}
	cp := orig.Clone()
	cp.Object("nested")["n"] = IRInt(99)
	cp["list"].(IRArray)[0] = IRInt(99)

	assert.Equal(t, IRInt(1), orig.Object("nested")["n"])
	assert.Equal(t, IRInt(1), orig["list"].(IRArray)[0])
	assert.Nil(t, IRObject(nil).Clone())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want bool
	}{
		{"same ints", IRInt(1), IRInt(1), true},
		{"different ints", IRInt(1), IRInt(2), false},
		{"int vs string", IRInt(1), IRString("1"), false},
		{"objects", IRObject{"a": IRInt(1)}, IRObject{"a": IRInt(1)}, true},
		{"object extra key", IRObject{"a": IRInt(1)}, IRObject{"a": IRInt(1), "b": IRInt(2)}, false},
		{"object vs array", IRObject{}, IRArray{}, false},
		{"arrays", IRArray{IRBool(true)}, IRArray{IRBool(true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestUnmarshalRejectsFloatsAndNull(t *testing.T) {
	for _, input := range []string{`3.14`, `{"a":1.5}`, `[1e3]`, `null`, `{"a":null}`} {
		t.Run(input, func(t *testing.T) {
			_, err := UnmarshalIRValue([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	orig := IRObject{
		"amount": IRInt(-5),
		"flag":   IRBool(true),
		"list":   IRArray{IRString("x"), IRInt(2)},
	}
	data, err := orig.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"amount":-5,"flag":true,"list":["x",2]}`, string(data))

	var back IRObject
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, Equal(orig, back))
}

func TestIRObjectUnmarshalRejectsNonObject(t *testing.T) {
	var obj IRObject
	err := obj.UnmarshalJSON([]byte(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected JSON object")
}
