package provider

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
)

// TokenStore persists the OAuth2 token outside the manifest, never logged
// (spec.md §6). The interactive consent flow that produces the first token
// is out of scope; this only implements the storage interface it depends
// on (SPEC_FULL.md's AMBIENT STACK note on `auth_*`).
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(*oauth2.Token) error
}

// FileTokenStore persists the token as JSON at Path, atomically.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.KindProvider, "no_token", "no stored OAuth2 token; run auth_bootstrap first")
		}
		return nil, errs.Wrap(errs.KindIO, "token_read_failed", "could not read token file", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, errs.Wrap(errs.KindIO, "token_parse_failed", "could not parse token file", err)
	}
	return &tok, nil
}

func (s FileTokenStore) Save(tok *oauth2.Token) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errs.Wrap(errs.KindIO, "mkdir_failed", "could not create token directory", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return errs.Wrap(errs.KindIO, "token_marshal_failed", "could not marshal token", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return errs.Wrap(errs.KindIO, "tempfile_failed", "could not create staging token file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindIO, "token_write_failed", "could not write staging token file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindIO, "token_close_failed", "could not close staging token file", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return errs.Wrap(errs.KindIO, "token_chmod_failed", "could not set token file permissions", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return errs.Wrap(errs.KindIO, "token_rename_failed", "could not replace token file", err)
	}
	return nil
}
