package credentials

import (
	"bytes"
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed files are laid out as magic | salt | nonce | ciphertext.
var sealMagic = []byte("SCS1")

const (
	sealSaltLength   = 16
	argonTime        = 2
	argonMemoryKiB   = 19 * 1024
	argonParallelism = 1
)

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemoryKiB, argonParallelism, chacha20poly1305.KeySize)
}

func seal(passphrase, plaintext []byte) ([]byte, error) {
	salt := make([]byte, sealSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "[seal] rand.Read salt")
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, "[seal] chacha20poly1305.NewX")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "[seal] rand.Read nonce")
	}

	out := make([]byte, 0, len(sealMagic)+len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, sealMagic), nil
}

func unseal(passphrase, data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, sealMagic) {
		return nil, errors.New("[unseal] not a sealed credential file")
	}
	data = data[len(sealMagic):]

	if len(data) < sealSaltLength+chacha20poly1305.NonceSizeX {
		return nil, errors.New("[unseal] sealed data too short")
	}
	salt, rest := data[:sealSaltLength], data[sealSaltLength:]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, "[unseal] chacha20poly1305.NewX")
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, sealMagic)
	if err != nil {
		return nil, errors.Wrap(err, "[unseal] aead.Open")
	}
	return plaintext, nil
}
