// Package checksum computes the fingerprints the frontier uses for
// deduplication. They are equality keys only, never security primitives.
package checksum

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/waftester/crawlscan/pkg/formdata"
)

// Size is the length of every digest in hex characters.
const Size = 32

// Structural fingerprints a parameter-name list. Names are hashed in the
// order given, so the same names in a different order hash differently.
func Structural(names []string) string {
	return digest(strings.Join(names, ""))
}

// StructuralOf fingerprints the names of v in insertion order.
func StructuralOf(v *formdata.Values) string {
	return Structural(v.Names())
}

// Content fingerprints name=value pairs joined with "&" in insertion order.
func Content(v *formdata.Values) string {
	return digest(strings.Join(v.Pairs(), "&"))
}

func digest(s string) string {
	h1, h2 := murmur3.Sum128([]byte(s))
	return fmt.Sprintf("%016x%016x", h1, h2)
}
