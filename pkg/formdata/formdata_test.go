package formdata

import (
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValues_InsertionOrder(t *testing.T) {
	v := New(0)
	v.Set("b", "2")
	v.Set("a", "1")
	v.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, v.Names())
	assert.Equal(t, "3", v.Get("b"))
	assert.Equal(t, "b=3&a=1", v.Encode())
}

func TestValues_SetDefaultFirstWins(t *testing.T) {
	var v Values
	assert.True(t, v.SetDefault("user", "x"))
	assert.False(t, v.SetDefault("user", "y"))
	assert.Equal(t, "x", v.Get("user"))
}

func TestValues_EqualIgnoresOrder(t *testing.T) {
	a := New(2)
	a.Set("a", "1")
	a.Set("b", "2")
	b := New(2)
	b.Set("b", "2")
	b.Set("a", "1")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	b.Set("a", "changed")
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestValues_NilSemantics(t *testing.T) {
	var nilValues *Values
	empty := New(0)

	assert.True(t, nilValues.Equal(nil))
	assert.False(t, nilValues.Equal(empty))
	assert.NotEqual(t, nilValues.Key(), empty.Key())
	assert.Equal(t, 0, nilValues.Len())
	assert.Nil(t, nilValues.Clone())
}

func TestParseQuery(t *testing.T) {
	v := ParseQuery("id=1&q=a%20b&id=2&&flag")
	assert.Equal(t, []string{"id", "q", "flag"}, v.Names())
	assert.Equal(t, "1", v.Get("id"))
	assert.Equal(t, "a b", v.Get("q"))
	assert.Equal(t, "", v.Get("flag"))
}

func TestValues_JSONKeepsOrder(t *testing.T) {
	v := New(2)
	v.Set("zeta", "1")
	v.Set("alpha", "2")

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":"1","alpha":"2"}`, string(data))
	assert.Equal(t, `{"zeta":"1","alpha":"2"}`, string(data))

	var decoded Values
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"zeta", "alpha"}, decoded.Names())
	assert.True(t, v.Equal(&decoded))
}

func TestValues_UnmarshalNonString(t *testing.T) {
	var v Values
	require.NoError(t, json.Unmarshal([]byte(`{"n":1,"s":"x"}`), &v))
	assert.Equal(t, "1", v.Get("n"))
	assert.Equal(t, "x", v.Get("s"))
}

func TestValues_UnmarshalYAMLKeepsOrder(t *testing.T) {
	var doc struct {
		Data *Values `yaml:"data"`
	}
	src := "data:\n  user: admin\n  pass: 123\n  remember: true\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	require.NotNil(t, doc.Data)
	assert.Equal(t, []string{"user", "pass", "remember"}, doc.Data.Names())
	assert.Equal(t, "123", doc.Data.Get("pass"))

	err := yaml.Unmarshal([]byte("data:\n  nested:\n    a: 1\n"), &doc)
	assert.Error(t, err)
}
