// Package keybackend provides SecretStore implementations for the access keys
// that sign and verify presigned URLs of the filesystem object store.
package keybackend

import (
	"fmt"

	"github.com/sagarc03/filedock"
)

// MapSecretStore retrieves keys from an in-memory map.
type MapSecretStore struct {
	keys map[string]string
}

var _ filedock.SecretStore = (*MapSecretStore)(nil)

func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup retrieves the secret key for the given access key from the map.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found {
		return "", fmt.Errorf("%w: %w", ErrKeyNotFound, filedock.ErrUnauthorized)
	}
	return secretKey, nil
}

// Len reports the number of loaded keys.
func (s *MapSecretStore) Len() int {
	return len(s.keys)
}
