package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s     Severity
		valid bool
		score int
	}{
		{Critical, true, 5},
		{High, true, 4},
		{Medium, true, 3},
		{Low, true, 2},
		{Info, true, 1},
		{"CRITICAL", false, 0},
		{"", false, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.s), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, tt.s.IsValid())
			assert.Equal(t, tt.score, tt.s.Score())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, High, sev)

	sev, err = ParseSeverity("")
	require.NoError(t, err)
	assert.Equal(t, Info, sev)

	_, err = ParseSeverity("severe")
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, Critical.AtLeast(High))
	assert.True(t, High.AtLeast(High))
	assert.False(t, Medium.AtLeast(High))
	assert.False(t, Severity("bogus").AtLeast(Info))
}
