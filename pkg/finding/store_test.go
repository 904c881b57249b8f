package finding

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newFinding(script, url, evidence string) *Finding {
	return &Finding{
		Script:   script,
		Category: Passive,
		Severity: Low,
		URL:      url,
		Evidence: evidence,
		Request:  &Snapshot{Method: "GET", URL: url},
	}
}

func TestStore_OncePolicy(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Add(newFinding("server-banner", "http://a/1", "nginx"), true))
	assert.False(t, s.Add(newFinding("server-banner", "http://a/2", "nginx"), true))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Reported("server-banner"))
	assert.False(t, s.Reported("other"))
}

func TestStore_AlwaysPolicyDedupsIdentical(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Add(newFinding("sql-error", "http://a/1", "syntax error"), false))
	assert.False(t, s.Add(newFinding("sql-error", "http://a/1", "syntax error"), false))
	assert.True(t, s.Add(newFinding("sql-error", "http://a/2", "syntax error"), false))
	assert.Equal(t, 2, s.Len())
}

func TestStore_InjectedParamIsPartOfIdentity(t *testing.T) {
	s := NewStore()

	a := newFinding("sqli", "http://a/?id=1&q=x", "error")
	a.Request.Location, a.Request.Param = "query", "id"
	b := newFinding("sqli", "http://a/?id=1&q=x", "error")
	b.Request.Location, b.Request.Param = "query", "q"

	assert.True(t, s.Add(a, false))
	assert.True(t, s.Add(b, false))
}

func TestStore_ConcurrentOnce(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(newFinding("once", fmt.Sprintf("http://a/%d", i), "x"), true)
			s.Add(newFinding("always", fmt.Sprintf("http://a/%d", i), "x"), false)
		}(i)
	}
	wg.Wait()

	count := map[string]int{}
	for _, f := range s.All() {
		count[f.Script]++
	}
	assert.Equal(t, 1, count["once"])
	assert.Equal(t, 50, count["always"])
}

func TestStore_Sorted(t *testing.T) {
	s := NewStore()
	low := newFinding("b", "http://a/", "1")
	high := newFinding("a", "http://a/", "2")
	high.Severity = High
	s.Add(low, false)
	s.Add(high, false)

	sorted := s.Sorted()
	assert.Equal(t, "a", sorted[0].Script)
	assert.Equal(t, "b", sorted[1].Script)
}

func TestScanResult_Summaries(t *testing.T) {
	r := &ScanResult{Findings: []*Finding{
		{Severity: Low}, {Severity: High}, {Severity: Low},
	}}
	assert.Equal(t, High, r.MaxSeverity())
	assert.Equal(t, 2, r.CountBySeverity()[Low])
	assert.Equal(t, Severity(""), (&ScanResult{}).MaxSeverity())
}
