package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// keySize は対称鍵のバイト数。
const keySize = 32

// nonceSize はナンスのバイト数。暗号文の先頭に平文で付与される。
const nonceSize = 24

// ErrDecryptFailed は暗号文が復号できない（改ざんまたは別鍵）ことを示す。
var ErrDecryptFailed = errors.New("crypto: decrypt failed")

// Cipher は共有鍵による認証付き対称暗号。
// 暗号文はナンスを先頭に連結したうえでbase64符号化される。
type Cipher struct {
	// key は32バイトの共有鍵。
	key [keySize]byte
}

// NewCipher はbase64符号化された32バイト鍵からCipherを生成する。
func NewCipher(encodedKey string) (*Cipher, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("鍵のbase64復号に失敗: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("鍵の長さが不正: got %dバイト, want %dバイト", len(raw), keySize)
	}

	c := &Cipher{}
	copy(c.key[:], raw)
	return c, nil
}

// Encrypt は平文を暗号化しbase64符号化した暗号文を返す。
// 呼び出しごとにランダムなナンスを採番するため、同じ平文でも
// 暗号文は毎回異なる。
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("ナンスの生成に失敗: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt はbase64符号化された暗号文を復号する。
// 形式が不正な場合、改ざんされている場合、別の鍵で暗号化されていた場合は
// いずれもErrDecryptFailedを返す。
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(raw) < nonceSize {
		return "", ErrDecryptFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
