package match

import (
	"github.com/cloudflare/ahocorasick"
)

// Index is a keyword prefilter over groups of matchers. A group whose
// matchers are all case-sensitive body substring searches can only match a
// body containing one of their literals; those groups are skipped in one
// Aho-Corasick pass when none of their literals occurs. Every other group is
// always a candidate.
type Index struct {
	ac        *ahocorasick.Matcher
	byKeyword map[int][]int
	fallback  []int
	groups    int
}

// NewIndex builds an index over groups, one group per script.
func NewIndex(groups [][]*Matcher) *Index {
	ix := &Index{
		byKeyword: make(map[int][]int),
		groups:    len(groups),
	}

	var keywords []string
	keywordIdx := make(map[string]int)

	for gi, group := range groups {
		kws, ok := groupKeywords(group)
		if !ok {
			ix.fallback = append(ix.fallback, gi)
			continue
		}
		for _, kw := range kws {
			idx, exists := keywordIdx[kw]
			if !exists {
				idx = len(keywords)
				keywords = append(keywords, kw)
				keywordIdx[kw] = idx
			}
			ix.byKeyword[idx] = append(ix.byKeyword[idx], gi)
		}
	}

	if len(keywords) > 0 {
		ix.ac = ahocorasick.NewStringMatcher(keywords)
	}
	return ix
}

func groupKeywords(group []*Matcher) ([]string, bool) {
	if len(group) == 0 {
		return nil, false
	}
	kws := make([]string, 0, len(group))
	for _, m := range group {
		kw := m.keyword()
		if kw == "" {
			return nil, false
		}
		kws = append(kws, kw)
	}
	return kws, true
}

// Candidates returns, in ascending order, the indices of the groups that may
// match body.
func (ix *Index) Candidates(body []byte) []int {
	hit := make([]bool, ix.groups)
	for _, gi := range ix.fallback {
		hit[gi] = true
	}
	if ix.ac != nil {
		for _, kwIdx := range ix.ac.MatchThreadSafe(body) {
			for _, gi := range ix.byKeyword[kwIdx] {
				hit[gi] = true
			}
		}
	}

	out := make([]int, 0, len(hit))
	for gi, ok := range hit {
		if ok {
			out = append(out, gi)
		}
	}
	return out
}

// Indexed returns how many groups are gated by keywords.
func (ix *Index) Indexed() int {
	return ix.groups - len(ix.fallback)
}
