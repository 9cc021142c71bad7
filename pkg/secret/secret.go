// Package secret sella valores sensibles (activation key, refresh token) antes de persistirlos.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// prefix identifica un valor sellado; los valores sin prefijo se leen tal cual (datos previos al cifrado).
const prefix = "sealed:v1:"

// ErrInvalidKey la clave no es hex de 32 bytes.
var ErrInvalidKey = errors.New("secret: la clave debe ser hex de 32 bytes")

// Box cifra con XChaCha20-Poly1305. Un *Box nil no cifra (Seal/Open devuelven el valor sin cambios).
type Box struct {
	key []byte
}

// New construye la caja a partir de la clave en hex. Una clave vacía devuelve nil, nil.
func New(hexKey string) (*Box, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Box{key: key}, nil
}

// Seal cifra plain. El resultado es texto apto para una columna TEXT.
func (b *Box) Seal(plain string) (string, error) {
	if b == nil || plain == "" {
		return plain, nil
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plain), nil)
	return prefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open descifra un valor producido por Seal.
func (b *Box) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, prefix) {
		return stored, nil
	}
	if b == nil {
		return "", errors.New("secret: valor sellado sin clave configurada")
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil {
		return "", fmt.Errorf("secret: decodificar: %w", err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("secret: valor truncado")
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secret: abrir: %w", err)
	}
	return string(plain), nil
}
