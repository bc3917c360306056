// Package cardcrypto encrypts, decrypts and masks primary account numbers.
package cardcrypto

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spec-kit/bankcards-service/internal/config"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

const (
	// KeyLength is the required AES-128 key size in bytes.
	KeyLength = 16

	maskPlaceholder = "****"
	visibleDigits   = 4
	standardNonce   = 12
	standardTag     = 16
	minTag          = 12
)

// Cipher performs AES-GCM encryption of card numbers.
// A Cipher is immutable once constructed and safe for concurrent use.
type Cipher struct {
	aead        stdcipher.AEAD
	nonceLength int
	pattern     string
}

// New validates the key material and builds a Cipher.
func New(cfg config.EncryptionConfig) (*Cipher, error) {
	if len(cfg.Key) != KeyLength {
		return nil, apperrors.NewEncryptionError(fmt.Sprintf("encryption key must be %d bytes long", KeyLength))
	}
	if strings.Count(cfg.MaskingPattern, "%s") != 1 || strings.Count(cfg.MaskingPattern, "%") != 1 {
		return nil, apperrors.NewEncryptionError("masking pattern must contain exactly one %s verb")
	}

	nonceLength := cfg.NonceLength
	if nonceLength == 0 {
		nonceLength = standardNonce
	}
	tagLength := cfg.TagLength
	if tagLength == 0 {
		tagLength = standardTag
	}

	block, err := aes.NewCipher([]byte(cfg.Key))
	if err != nil {
		return nil, apperrors.NewEncryptionError("invalid encryption key")
	}
	aead, err := newAEAD(block, nonceLength, tagLength)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead, nonceLength: nonceLength, pattern: cfg.MaskingPattern}, nil
}

// The standard library only lets one of nonce or tag size deviate from the default.
func newAEAD(block stdcipher.Block, nonceLength, tagLength int) (stdcipher.AEAD, error) {
	switch {
	case nonceLength <= 0:
		return nil, apperrors.NewEncryptionError("nonce length must be positive")
	case tagLength < minTag || tagLength > standardTag:
		return nil, apperrors.NewEncryptionError(fmt.Sprintf("tag length must be between %d and %d bytes", minTag, standardTag))
	case nonceLength == standardNonce:
		aead, err := stdcipher.NewGCMWithTagSize(block, tagLength)
		if err != nil {
			return nil, apperrors.NewEncryptionError("unsupported tag length")
		}
		return aead, nil
	case tagLength == standardTag:
		aead, err := stdcipher.NewGCMWithNonceSize(block, nonceLength)
		if err != nil {
			return nil, apperrors.NewEncryptionError("unsupported nonce length")
		}
		return aead, nil
	default:
		return nil, apperrors.NewEncryptionError("custom nonce and tag lengths cannot be combined")
	}
}

// Encrypt seals plaintext under a fresh random nonce and returns base64(nonce|ciphertext|tag).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", apperrors.NewEncryptionError("encryption failed")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt verifies and opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < c.nonceLength+c.aead.Overhead() {
		return "", apperrors.NewEncryptionError("decryption failed")
	}
	nonce, sealed := raw[:c.nonceLength], raw[c.nonceLength:]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperrors.NewEncryptionError("decryption failed")
	}
	return string(plain), nil
}

// Mask shows only the last four characters of a card number.
func (c *Cipher) Mask(plaintext string) string {
	runes := []rune(plaintext)
	if len(runes) < visibleDigits {
		return fmt.Sprintf(c.pattern, maskPlaceholder)
	}
	return fmt.Sprintf(c.pattern, string(runes[len(runes)-visibleDigits:]))
}

// MaskCiphertext decrypts and masks. It never fails: undecryptable input yields the placeholder mask.
func (c *Cipher) MaskCiphertext(ciphertext string) string {
	plain, err := c.Decrypt(ciphertext)
	if err != nil {
		return fmt.Sprintf(c.pattern, maskPlaceholder)
	}
	return c.Mask(plain)
}
