package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesKeyOrder(t *testing.T) {
	n, err := Parse([]byte(`{"zeta": 1, "alpha": {"b": true, "a": null}, "mid": ["x", 2]}`))
	require.NoError(t, err)
	require.Equal(t, Mapping, n.Kind)

	var keys []string
	for pair := n.Fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	out, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":1,"alpha":{"b":true,"a":null},"mid":["x",2]}`, string(out))
	assert.Equal(t, `{"zeta":1,"alpha":{"b":true,"a":null},"mid":["x",2]}`, string(out))
}

func TestParse_KeepsNumberText(t *testing.T) {
	n, err := Parse([]byte(`{"id": 12345678901234567890, "year": 2019}`))
	require.NoError(t, err)

	id, _ := n.Get("id")
	assert.Equal(t, "12345678901234567890", id.String())

	year, _ := n.Get("year")
	v, ok := year.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(2019), v)
}

func TestParse_RejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{"a": 1} {"b": 2}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"a": `))
	assert.Error(t, err)
}

func TestParseLenient_AcceptsJSON5(t *testing.T) {
	n, err := ParseLenient([]byte(`{companyName: 'Acme', tags: ['ai', 'saas',],}`))
	require.NoError(t, err)

	name, ok := n.Get("companyName")
	require.True(t, ok)
	assert.Equal(t, "Acme", name.String())

	tags, ok := n.Get("tags")
	require.True(t, ok)
	assert.Equal(t, "ai, saas", tags.String())
}

func TestParseLenient_KeepsLargeIDs(t *testing.T) {
	n, err := ParseLenient([]byte(`{items: [{id: 9007199254740993}, {id: 0x1F}, {id: 12,},]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"9007199254740993", "31", "12"}, n.IDs())
}

func TestWalk_VisitsNestedEntries(t *testing.T) {
	n, err := Parse([]byte(`{"a": {"b": [{"c": 1}, {"d": {"e": "x"}}]}}`))
	require.NoError(t, err)

	var seen []string
	n.Walk(func(key string, _ *Node) {
		seen = append(seen, key)
	})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestIDs(t *testing.T) {
	n, err := Parse([]byte(`{
		"id": "root",
		"items": [{"id": 1}, {"id": 22, "owner": {"id": "333"}}, {"id": true}, {"id": null}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"root", "1", "22", "333"}, n.IDs())
}

func TestFlatten(t *testing.T) {
	n, err := Parse([]byte(`{
		"company": {"name": "Acme", "address": {"city": "Singapore"}},
		"tags": ["ai", "fintech"],
		"count": 3,
		"empty": null
	}`))
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Key: "company_name", Value: "Acme"},
		{Key: "company_address_city", Value: "Singapore"},
		{Key: "tags", Value: "ai, fintech"},
		{Key: "count", Value: "3"},
		{Key: "empty", Value: ""},
	}, n.Flatten("_"))
}

func TestFlatten_NonMapping(t *testing.T) {
	n, err := Parse([]byte(`[1, 2]`))
	require.NoError(t, err)
	assert.Nil(t, n.Flatten("_"))
}

func TestJoin_RendersCompositesAsJSON(t *testing.T) {
	n, err := Parse([]byte(`["a", null, {"k": "v"}, [1, 2]]`))
	require.NoError(t, err)
	assert.Equal(t, `a, {"k":"v"}, [1,2]`, n.Join(", "))
}

func TestFromValue_SortsKeys(t *testing.T) {
	n := FromValue(map[string]any{
		"b": float64(2),
		"a": []any{"x", true},
	})

	out, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",true],"b":2}`, string(out))
}
