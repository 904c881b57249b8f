// Package ui renders the terminal banner and the end-of-run summary.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/waftester/crawlscan/pkg/defaults"
)

const bannerArt = `
                         __
  ______________ __    _/ /_____________ _____
 / ___/ ___/ __ '/ |/|/ / / ___/ ___/ __ '/ __ \
/ /__/ /  / /_/ /|  |  / (__  ) /__/ /_/ / / / /
\___/_/   \__,_/ |__/|__/____/\___/\__,_/_/ /_/
`

// PrintBanner writes the banner and version to w.
func PrintBanner(w io.Writer) {
	for _, line := range strings.Split(bannerArt, "\n") {
		if strings.TrimSpace(line) != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "%40s\n\n", "v"+VersionStyle.Render(defaults.Version))
}

// PrintOptions writes name/value pairs in the given order, skipping empty
// values.
//
//	:: Target               : https://target/
func PrintOptions(w io.Writer, pairs ...[2]string) {
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		fmt.Fprintf(w, " :: %-20s : %s\n", LabelStyle.Render(p[0]), ValueStyle.Render(p[1]))
	}
	fmt.Fprintln(w)
}
