package auth

import (
	"fmt"
)

// Keyring holds the token signing key set. Newly issued tokens are signed
// with the active key; verification uses whichever key the token names, so a
// rotated-out key keeps verifying its outstanding tokens until they expire.
type Keyring struct {
	keys   map[string][]byte
	active string
}

// NewKeyring builds a keyring from key id -> secret pairs. The active id
// must be present in the set.
func NewKeyring(keys map[string]string, active string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("keyring requires at least one key")
	}
	if _, ok := keys[active]; !ok {
		return nil, fmt.Errorf("active key %q not present in key set", active)
	}

	byID := make(map[string][]byte, len(keys))
	for id, secret := range keys {
		if secret == "" {
			return nil, fmt.Errorf("key %q has an empty secret", id)
		}
		byID[id] = []byte(secret)
	}

	return &Keyring{keys: byID, active: active}, nil
}

// ActiveKeyID returns the id of the signing key.
func (k *Keyring) ActiveKeyID() string {
	return k.active
}

func (k *Keyring) signingKey() (string, []byte) {
	return k.active, k.keys[k.active]
}

func (k *Keyring) lookup(id string) ([]byte, bool) {
	key, ok := k.keys[id]
	return key, ok
}
