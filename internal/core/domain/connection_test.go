package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOAuthToken_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expiry  time.Time
		expired bool
	}{
		{"future expiry", time.Now().Add(time.Hour), false},
		{"past expiry", time.Now().Add(-time.Hour), true},
		{"zero expiry never expires", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := OAuthToken{AccessToken: "at", Expiry: tt.expiry}
			assert.Equal(t, tt.expired, tok.IsExpired())
		})
	}
}

func TestOAuthToken_ExpiresWithin(t *testing.T) {
	tok := OAuthToken{Expiry: time.Now().Add(30 * time.Second)}
	assert.True(t, tok.ExpiresWithin(time.Minute))
	assert.False(t, tok.ExpiresWithin(time.Second))

	forever := OAuthToken{}
	assert.False(t, forever.ExpiresWithin(time.Hour))
}

func TestConnection_IsAuthenticated(t *testing.T) {
	conn := Connection{Token: OAuthToken{AccessToken: "at"}}
	assert.True(t, conn.IsAuthenticated())

	empty := Connection{}
	assert.False(t, empty.IsAuthenticated())
}

func TestConnection_NeedsRefresh(t *testing.T) {
	inside := Connection{Token: OAuthToken{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(RefreshMargin / 2),
	}}
	assert.True(t, inside.NeedsRefresh())

	fresh := Connection{Token: OAuthToken{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Hour),
	}}
	assert.False(t, fresh.NeedsRefresh())

	// Without a refresh token there is nothing to refresh with.
	noRefresh := Connection{Token: OAuthToken{
		AccessToken: "at",
		Expiry:      time.Now().Add(RefreshMargin / 2),
	}}
	assert.False(t, noRefresh.NeedsRefresh())
}

func TestConnection_Key(t *testing.T) {
	conn := Connection{UserID: "alice", Provider: ProviderGoogleDrive}

	key := conn.Key()
	assert.Equal(t, "alice", key.UserID)
	assert.Equal(t, ProviderGoogleDrive, key.Provider)
	assert.Equal(t, "alice/google_drive", key.String())
}
