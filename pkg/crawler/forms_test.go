package crawler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body>
<form action="/login.php" method="post">
  <input type="text" name="user" value="x">
  <input type="email" name="contact">
  <input type="text" name="backup_mail">
  <input type="hidden" name="csrf">
  <input type="number" name="age">
  <textarea name="bio">hello</textarea>
  <input type="text" name="user" value="second">
  <input type="submit">
</form>
<form><input name="q"></form>
</body></html>`

func TestExtract_FillsFields(t *testing.T) {
	e := NewExtractor()
	forms, err := e.Extract([]byte(loginPage), "http://target.test/dir/page.php", true)
	require.NoError(t, err)
	require.Len(t, forms, 2)

	login := forms[0]
	assert.Equal(t, "http://target.test/login.php", login.Action)
	assert.Equal(t, []string{"user", "contact", "backup_mail", "csrf", "age", "bio"}, login.Values.Names())
	assert.Equal(t, "x", login.Values.Get("user"))
	assert.Equal(t, "", login.Values.Get("csrf"))
	assert.Equal(t, "1", login.Values.Get("age"))
	assert.Equal(t, "hello", login.Values.Get("bio"))

	email := login.Values.Get("contact")
	assert.Equal(t, 1, strings.Count(email, "@"))
	assert.True(t, strings.HasSuffix(email, ".com"))
	assert.Equal(t, email, login.Values.Get("backup_mail"))

	search := forms[1]
	assert.Equal(t, "http://target.test/dir/page.php", search.Action)
	assert.Len(t, search.Values.Get("q"), 8)
}

func TestExtract_NoFill(t *testing.T) {
	forms, err := NewExtractor().Extract([]byte(loginPage), "http://target.test/", false)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "x", forms[0].Values.Get("user"))
	assert.Equal(t, "", forms[0].Values.Get("contact"))
	assert.Equal(t, "", forms[0].Values.Get("age"))
	assert.Equal(t, "", forms[1].Values.Get("q"))
}

func TestExtract_BadBase(t *testing.T) {
	_, err := NewExtractor().Extract([]byte(loginPage), "http://[::1", true)
	assert.Error(t, err)
}

func TestExtract_BadActionIsLoggedAndSkipped(t *testing.T) {
	var logs bytes.Buffer
	e := NewExtractor()
	e.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	page := `<form action="http://[::1/post.php"><input name="a" value="1"></form>
<form action="/ok.php"><input name="b" value="2"></form>`
	forms, err := e.Extract([]byte(page), "http://target.test/", false)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "http://target.test/ok.php", forms[0].Action)

	assert.Contains(t, logs.String(), "form skipped")
	assert.Contains(t, logs.String(), "http://[::1/post.php")
}

func TestGenerate(t *testing.T) {
	e := NewExtractor()

	assert.Equal(t, "1", e.Generate("range", "volume"))
	assert.Equal(t, "1", e.Generate("integer", "n"))
	assert.Equal(t, e.Generate("email", "a"), e.Generate("text", "EMAIL_addr"))

	a, b := e.Generate("text", "name"), e.Generate("text", "name")
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)

	other := NewExtractor()
	assert.NotEqual(t, e.Generate("email", "e"), other.Generate("email", "e"))
}
