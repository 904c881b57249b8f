package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/crawlscan/pkg/formdata"
	"github.com/waftester/crawlscan/pkg/frontier"
)

func TestEntry_JSONShape(t *testing.T) {
	form := formdata.New(2)
	form.Set("user", "x")
	form.Set("id", "1")

	data, err := json.Marshal([]Entry{{URL: "http://t/"}, {URL: "http://t/login", Form: form}})
	require.NoError(t, err)
	assert.Equal(t, `[["http://t/",null],["http://t/login",{"user":"x","id":"1"}]]`, string(data))

	var back []Entry
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.Nil(t, back[0].Form)
	assert.Equal(t, []string{"user", "id"}, back[1].Form.Names())
}

func TestEntry_Malformed(t *testing.T) {
	var e Entry
	assert.ErrorIs(t, json.Unmarshal([]byte(`["only-url"]`), &e), ErrBadEntry)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"url":"x"}`), &e), ErrBadEntry)
}

func TestWriter_SaveAndLoad(t *testing.T) {
	fr, err := frontier.New("http://target.test/", frontier.DefaultConfig(), nil)
	require.NoError(t, err)
	require.True(t, fr.Enqueue(frontier.Task{URL: fr.Root()}))
	task, ok := fr.Dequeue(context.Background(), time.Second)
	require.True(t, ok)
	require.True(t, fr.MarkDispatched(task))

	path := filepath.Join(t.TempDir(), "nested", "progress.json")
	w, err := NewWriter(path, "session-1", nil)
	require.NoError(t, err)
	require.NoError(t, w.Save(fr))
	require.NoError(t, w.Save(fr))
	assert.Equal(t, 2, w.Saves())

	st, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "session-1", st.Session)
	assert.Equal(t, "http://target.test/", st.Root)
	assert.Equal(t, 1, st.Fetched)
	assert.Equal(t, []frontier.Task{{URL: "http://target.test/"}}, st.Tasks())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestNewWriter_NoPath(t *testing.T) {
	_, err := NewWriter("", "s", nil)
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestDefaultPath(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, filepath.Join("data", "crawler_target.test_8080_1700000000.json"),
		DefaultPath("http://target.test:8080/app/", now))
	assert.Equal(t, filepath.Join("data", "crawler_target_1700000000.json"), DefaultPath("::", now))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
