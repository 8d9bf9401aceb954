package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvider_Valid(t *testing.T) {
	tests := []struct {
		provider Provider
		valid    bool
	}{
		{ProviderGoogleDrive, true},
		{ProviderOneDrive, true},
		{ProviderSharePoint, true},
		{ProviderDropbox, true},
		{"ftp", false},
		{"", false},
		{"GOOGLE_DRIVE", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.provider.Valid())
		})
	}
}
