package google

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig(testClientJSON, "")
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "test" || len(cfg.Scopes) != 1 {
		t.Errorf("config = %+v", cfg)
	}
	if _, err := OAuthConfig("", ""); err == nil {
		t.Error("missing client should fail")
	}
	if _, err := OAuthConfig("", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing client file should fail")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err := ReadToken(path)
	if err != nil {
		t.Fatalf("ReadToken: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("token = %+v", got)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := SaveToken(empty, &oauth2.Token{}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if _, err := ReadToken(empty); err == nil {
		t.Error("empty token should be rejected")
	}
}

func TestNewWithOAuthToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{RefreshToken: "r"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	c, err := New(context.Background(), Config{SpreadsheetID: "x", OAuthClientJSON: testClientJSON, OAuthTokenFile: path}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.sheetName != defaultSheetName {
		t.Errorf("sheet = %q", c.sheetName)
	}

	_, err = New(context.Background(), Config{SpreadsheetID: "x", OAuthClientJSON: testClientJSON, OAuthTokenFile: filepath.Join(t.TempDir(), "missing")}, nil)
	if err == nil {
		t.Error("missing token file should fail")
	}
}
