package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts small secrets at rest (TOTP seeds). Without a key it
// passes values through unchanged so local setups keep working.
type Sealer struct {
	key []byte
}

func New(key string) (*Sealer, error) {
	if key == "" {
		return &Sealer{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be %d bytes after decoding", chacha20poly1305.KeySize)
	}
	return &Sealer{key: decoded}, nil
}

func (s *Sealer) Configured() bool {
	return s != nil && len(s.key) == chacha20poly1305.KeySize
}

func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed value too short")
	}
	nonce, data := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, data, nil)
}

func (s *Sealer) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Seal([]byte(value))
}

func (s *Sealer) DecryptString(value []byte) (string, error) {
	plain, err := s.Open(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
