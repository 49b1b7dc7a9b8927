package inertiavalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		kind    Kind
		wantErr bool
	}{
		{name: "null", input: `null`, kind: KindNull},
		{name: "bool", input: `true`, kind: KindBool},
		{name: "number", input: `1.5`, kind: KindNumber},
		{name: "string", input: `"a"`, kind: KindString},
		{name: "sequence", input: `[1, "a", null]`, kind: KindSequence},
		{name: "mapping", input: `{"a": {"b": [1]}}`, kind: KindMapping},
		{name: "empty", input: ``, wantErr: true},
		{name: "truncated", input: `{"a": `, wantErr: true},
		{name: "trailing data", input: `{} {}`, wantErr: true},
		{name: "html", input: `<html></html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Parse([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
		})
	}
}

func TestParse_MappingKeys(t *testing.T) {
	t.Parallel()

	v, err := Parse([]byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, KindMapping, v.Kind())

	got, ok := v.Map().Get("a")
	require.True(t, ok)
	assert.Equal(t, Number(1), got)

	v, err = Parse([]byte(`{"outer":{"inner":"x","list":[{"id":1}]},"next":true}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "next"}, v.Map().Keys())

	got, ok = v.Map().Lookup("outer.inner")
	require.True(t, ok)
	assert.Equal(t, String("x"), got)

	got, ok = v.Map().Lookup("outer.list.0.id")
	require.True(t, ok)
	assert.Equal(t, Number(1), got)
}

func TestValue_MarshalJSON_PreservesOrder(t *testing.T) {
	t.Parallel()

	input := `{"z":1,"a":{"y":[1,2,{"k":"v"}],"b":null},"m":true}`

	v, err := Parse([]byte(input))
	require.NoError(t, err)

	b, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, input, string(b))
	assert.Equal(t, []string{"z", "a", "m"}, v.Map().Keys())
}

func TestMap_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	m := NewMap()
	m.Set("a", Int(1))
	m.Set("b", Int(2))
	m.Set("a", Int(3))

	assert.Equal(t, []string{"a", "b"}, m.Keys())

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 3.0, v.Float(), 0)

	m.Delete("a")
	assert.Equal(t, []string{"b"}, m.Keys())
	assert.False(t, m.Has("a"))
}

func TestMap_NilIsEmpty(t *testing.T) {
	t.Parallel()

	var m *Map

	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Has("a"))
	assert.Nil(t, m.Keys())
	assert.Equal(t, 0, m.Clone().Len())

	b, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestMap_LookupAndSetPath(t *testing.T) {
	t.Parallel()

	v := MustFromAny(map[string]any{
		"user": map[string]any{
			"name":  "Ada",
			"roles": []any{"admin", "dev"},
		},
	})
	m := v.Map()

	name, ok := m.Lookup("user.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", name.Str())

	role, ok := m.Lookup("user.roles.1")
	require.True(t, ok)
	assert.Equal(t, "dev", role.Str())

	_, ok = m.Lookup("user.roles.5")
	assert.False(t, ok)

	m.SetPath("user.roles.0", String("owner"))
	m.SetPath("settings.theme", String("dark"))

	role, _ = m.Lookup("user.roles.0")
	assert.Equal(t, "owner", role.Str())

	theme, ok := m.Lookup("settings.theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme.Str())
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	v, err := FromAny([]item{{ID: 1, Name: "a"}})
	require.NoError(t, err)

	want := MustFromAny([]any{map[string]any{"id": 1, "name": "a"}})
	assert.True(t, Equal(want, v))

	var nilItem *item

	v, err = FromAny(nilItem)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()

	orig := MustFromAny(map[string]any{"a": map[string]any{"b": 1}})
	cp := orig.Clone()

	cp.Map().SetPath("a.b", Int(2))

	b, _ := orig.Map().Lookup("a.b")
	assert.InDelta(t, 1.0, b.Float(), 0)
}

func TestIdentityOf(t *testing.T) {
	t.Parallel()

	a, ok := IdentityOf(Int(1))
	require.True(t, ok)

	b, ok := IdentityOf(Number(1.0))
	require.True(t, ok)
	assert.Equal(t, a, b)

	s, ok := IdentityOf(String("1"))
	require.True(t, ok)
	assert.NotEqual(t, a, s)

	_, ok = IdentityOf(Sequence())
	assert.False(t, ok)

	_, ok = IdentityOf(Mapping(nil))
	assert.False(t, ok)
}
