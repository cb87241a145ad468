package challenge

import "os"

// ScopedToken acquires a token file at path with the given contents and
// mode, and guarantees its deletion through Close, however the caller
// exits — success or error, provided Close is deferred right after a
// successful Acquire.
type ScopedToken struct {
	path string
}

// AcquireScopedToken writes contents to path with the given permission
// bits, returning a handle whose Close deletes it. mode is applied with
// an explicit chmod, since WriteFile only honors it when creating path
// and a webserver-readable mode must hold even if a stale token from a
// prior run is still sitting there.
func AcquireScopedToken(path string, contents []byte, mode os.FileMode) (*ScopedToken, error) {
	if err := os.WriteFile(path, contents, mode); err != nil {
		return nil, err
	}
	if err := os.Chmod(path, mode); err != nil {
		return nil, err
	}
	return &ScopedToken{path: path}, nil
}

// Close deletes the token file. Idempotent: deleting an already-removed
// file is not an error.
func (t *ScopedToken) Close() error {
	if t == nil {
		return nil
	}
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
