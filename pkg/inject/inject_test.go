package inject

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/crawlscan/pkg/formdata"
	"github.com/waftester/crawlscan/pkg/httpclient"
	"github.com/waftester/crawlscan/pkg/script"
)

func mustScript(t *testing.T, src string) *script.Script {
	t.Helper()
	s, err := script.Parse([]byte(src), script.FormatJSON, "test.json")
	require.NoError(t, err)
	return s
}

const sqliQuery = `{"name":"sqli","request":"query","data":{"inject_value":"'"},
  "matches":[{"type":"contains","match":"SQL syntax"}]}`

func newClient(t *testing.T) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.DefaultConfig())
	require.NoError(t, err)
	return c
}

func TestVariants_Query(t *testing.T) {
	s := mustScript(t, sqliQuery)
	base := &httpclient.Request{URL: "http://t/item.php?id=1&q=x"}

	vs := Variants(base, s)
	require.Len(t, vs, 2)

	assert.Equal(t, "id", vs[0].Param)
	assert.Equal(t, LocQuery, vs[0].Location)
	assert.Equal(t, "1'", vs[0].Value)
	assert.Equal(t, "http://t/item.php?id=1%27&q=x", vs[0].Request.URL)

	assert.Equal(t, "q", vs[1].Param)
	assert.Equal(t, "http://t/item.php?id=1&q=x%27", vs[1].Request.URL)

	assert.Equal(t, "http://t/item.php?id=1&q=x", base.URL, "base request is untouched")
	assert.Empty(t, Variants(&httpclient.Request{URL: "http://t/"}, s))
}

func TestVariants_FormReplaceAndParam(t *testing.T) {
	form := formdata.New(2)
	form.Set("user", "bob")
	form.Set("pass", "secret")
	base := &httpclient.Request{URL: "http://t/login?next=home", Form: form}

	replace := mustScript(t, `{"name":"r","request":"post","data":{"inject_value":"<x>","mode":"replace"},
	  "matches":[{"type":"contains","match":"<x>"}]}`)
	vs := Variants(base, replace)
	require.Len(t, vs, 2)
	assert.Equal(t, "<x>", vs[0].Request.Form.Get("user"))
	assert.Equal(t, "secret", vs[0].Request.Form.Get("pass"))
	assert.Equal(t, "<x>", vs[1].Request.Form.Get("pass"))
	assert.Equal(t, "bob", form.Get("user"))

	param := mustScript(t, `{"name":"p","request":"param","data":{"inject_value":"'"},
	  "matches":[{"type":"contains","match":"x"}]}`)
	vs = Variants(base, param)
	require.Len(t, vs, 3)
	assert.Equal(t, []string{LocQuery, LocForm, LocForm}, []string{vs[0].Location, vs[1].Location, vs[2].Location})
}

func TestVariants_Header(t *testing.T) {
	s := mustScript(t, `{"name":"h","request":"header","data":{"inject_value":"${7*7}"},
	  "matches":[{"type":"contains","match":"49"}]}`)
	vs := Variants(&httpclient.Request{URL: "http://t/"}, s)
	require.Len(t, vs, len(DefaultHeaders))
	assert.Equal(t, "User-Agent", vs[0].Param)
	assert.Equal(t, "${7*7}", vs[0].Request.Header.Get("User-Agent"))

	s = mustScript(t, `{"name":"h2","request":"header","data":{"inject_value":"x","headers":["x-custom"]},
	  "matches":[{"type":"contains","match":"x"}]}`)
	vs = Variants(&httpclient.Request{URL: "http://t/"}, s)
	require.Len(t, vs, 1)
	assert.Equal(t, "X-Custom", vs[0].Param)
}

func TestRun_OnlyMatchingVariantsHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("id"), "'") {
			fmt.Fprint(w, "You have an error in your SQL syntax")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	b := New(newClient(t), nil)
	hits, err := b.Run(context.Background(), &httpclient.Request{URL: srv.URL + "/item?id=1&q=x"}, mustScript(t, sqliQuery))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "id", hits[0].Variant.Param)
	assert.Equal(t, "SQL syntax", hits[0].Match.Evidence)

	_, err = b.Run(context.Background(), &httpclient.Request{URL: srv.URL}, mustScript(t,
		`{"name":"p","run_at":"response","matches":[{"type":"contains","match":"x"}]}`))
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.git/config" {
			fmt.Fprint(w, "[core]\n\trepositoryformatversion = 0")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	b := New(newClient(t), nil)
	git := mustScript(t, `{"name":"git","run_at":"fs","data":{"url":"/.git/config"},
	  "matches":[{"type":"contains","match":"[core]"}]}`)

	res, err := b.Probe(context.Background(), git, srv.URL+"/app/index.php")
	require.NoError(t, err)
	assert.True(t, res.Found())
	require.NotNil(t, res.Match)
	assert.Equal(t, srv.URL+"/.git/config", res.Request.URL)

	missing := mustScript(t, `{"name":"env","run_at":"fs","data":{"url":"/.env"},
	  "matches":[{"type":"status","match":"404"}]}`)
	res, err = b.Probe(context.Background(), missing, srv.URL+"/")
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.NotNil(t, res.Match, "matchers run regardless of status")
}

func TestProbeRequest(t *testing.T) {
	s := mustScript(t, `{"name":"rel","run_at":"fs","data":{"url":"backup.zip","options":["rootdir"],
	  "data":{"a":"1"},"headers":{"X-Test":"1"}},"matches":[{"type":"status","match":"200"}]}`)

	req, err := ProbeRequest(s, "http://t/app/page.php")
	require.NoError(t, err)
	assert.Equal(t, "http://t/backup.zip", req.URL)
	assert.Equal(t, http.MethodPost, req.EffectiveMethod())
	assert.Equal(t, "1", req.Header.Get("X-Test"))

	_, err = ProbeRequest(s, "::bad")
	assert.ErrorIs(t, err, ErrBadURL)

	_, err = ProbeRequest(mustScript(t, sqliQuery), "http://t/")
	assert.ErrorIs(t, err, ErrNotProbe)
}
