package duration

import (
	"testing"
	"time"
)

func TestTimeoutOrdering(t *testing.T) {
	if Connect >= Read {
		t.Errorf("Connect (%v) must be shorter than Read (%v)", Connect, Read)
	}
	if ScannerIdle > FrontierIdle {
		t.Errorf("ScannerIdle (%v) must not exceed FrontierIdle (%v)", ScannerIdle, FrontierIdle)
	}
}

func TestDefaults(t *testing.T) {
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"Connect", Connect, 3 * time.Second},
		{"Read", Read, 30 * time.Second},
		{"FrontierIdle", FrontierIdle, 10 * time.Second},
		{"ScannerIdle", ScannerIdle, time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
