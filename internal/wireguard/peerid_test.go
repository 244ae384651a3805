package wireguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerIDIsDeterministic(t *testing.T) {
	first := PeerID(1234567890, "laptop")
	second := PeerID(1234567890, "laptop")
	assert.Equal(t, first, second)
	assert.Equal(t, "1234567890-laptop", first)
}

func TestPeerIDPrefixSharingPairsDoNotCollide(t *testing.T) {
	// user "12" profile "3x" vs user "123" profile "x" collide without a
	// separator; the separator must keep them apart.
	a := PeerID(12, "3x")
	b := PeerID(123, "x")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "12-3x", a)
	assert.Equal(t, "123-x", b)
}

func TestValidateProfileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "laptop", false},
		{"with digits and underscore", "phone_2", false},
		{"single char", "a", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 33), true},
		{"contains separator", "lap-top", true},
		{"contains space", "my phone", true},
		{"non latin", "телефон", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfileName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
