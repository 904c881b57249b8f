package defaults

import (
	"regexp"
	"strings"
	"testing"
)

func TestVersionIsSemver(t *testing.T) {
	semverPattern := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9]+)?$`)
	if !semverPattern.MatchString(Version) {
		t.Errorf("Version (%s) is not valid semver", Version)
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(""); got != UAMinimal {
		t.Errorf("UserAgent(\"\") = %q, want %q", got, UAMinimal)
	}
	got := UserAgent("probe")
	if !strings.HasPrefix(got, "crawlscan/"+Version) || !strings.HasSuffix(got, "(probe)") {
		t.Errorf("UserAgent(probe) = %q", got)
	}
}

func TestAllowedFiletypesIncludeNoExtension(t *testing.T) {
	found := false
	for _, ext := range AllowedFiletypes {
		if ext == "" {
			found = true
		}
		if ext != "" && !strings.HasPrefix(ext, ".") {
			t.Errorf("extension %q must start with a dot", ext)
		}
	}
	if !found {
		t.Error("AllowedFiletypes must contain the empty extension")
	}
}
