package keybackend

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrKeyNotFound is returned when the access key does not exist in the store.
	ErrKeyNotFound = errors.New("access key not found")
	// ErrNoKeys is returned by SigningPair when no key pair is configured.
	ErrNoKeys = errors.New("no access keys configured")
)

// KeysConfig holds configuration for loading access keys.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline" yaml:"inline"` // Inline key pairs from config
	File   string    `mapstructure:"file" yaml:"file"`     // Path to JSON file containing key pairs
	// Signing names the access key used to sign presigned URLs for the
	// filesystem object store. Empty selects the lexically first key.
	Signing string `mapstructure:"signing" yaml:"signing"`
}

// NewSecretStore creates a MapSecretStore from the given configuration.
// It loads keys from both inline config and file (if specified),
// merging them into a single store. File keys take precedence over inline keys
// if there are duplicates.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys := make(map[string]string)

	for _, p := range cfg.Inline {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return NewMapSecretStore(keys), nil
}

// SigningPair returns the key pair named by accessKey, or the lexically first
// pair when accessKey is empty.
func (s *MapSecretStore) SigningPair(accessKey string) (KeyPair, error) {
	if len(s.keys) == 0 {
		return KeyPair{}, fmt.Errorf("signing pair: %w", ErrNoKeys)
	}

	if accessKey == "" {
		names := make([]string, 0, len(s.keys))
		for k := range s.keys {
			names = append(names, k)
		}
		slices.SortFunc(names, strings.Compare)
		accessKey = names[0]
	}

	secret, ok := s.keys[accessKey]
	if !ok {
		return KeyPair{}, fmt.Errorf("signing pair %s: %w", accessKey, ErrKeyNotFound)
	}

	return KeyPair{AccessKey: accessKey, SecretKey: secret}, nil
}
