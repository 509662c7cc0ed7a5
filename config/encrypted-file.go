package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"

	"github.com/relloyd/obspipe/helper"
)

// defaultFileKey is used unless OP_CONFIG_KEY is set.
var defaultFileKey = []byte("Qm3#rT8v!wZ2pL6^yN0$cF4&hJ9*dS1@")

// EncryptedFile stores bytes AES-GCM encrypted and base64 encoded in a single file.
type EncryptedFile struct {
	Dirname  string
	FileName string
	FullPath string
}

func NewEncryptedFile(dirName string, filename string) *EncryptedFile {
	return &EncryptedFile{Dirname: dirName, FileName: filename, FullPath: path.Join(dirName, filename)}
}

// fileKey returns the 32 byte AES key.
func fileKey() []byte {
	if v := os.Getenv(helper.GetEnvVarName("config-key")); v != "" {
		k := sha256.Sum256([]byte(v))
		return k[:]
	}
	return defaultFileKey
}

func (f *EncryptedFile) Set(text []byte) error {
	sealed, err := Encrypt(text, fileKey())
	if err != nil {
		return err
	}
	if err := makeDir(f.Dirname); err != nil {
		return err
	}
	return ioutil.WriteFile(f.FullPath, []byte(base64.StdEncoding.EncodeToString(sealed)), 0600)
}

func (f *EncryptedFile) Get() ([]byte, error) {
	if !fileExists(f.FullPath) {
		return nil, FileNotFoundError{f.FullPath}
	}
	b64, err := ioutil.ReadFile(f.FullPath)
	if err != nil {
		return nil, err
	}
	cipherText, err := base64.StdEncoding.DecodeString(string(b64))
	if err != nil {
		return nil, fmt.Errorf("config file %v is corrupt: %w", f.FullPath, err)
	}
	return Decrypt(cipherText, fileKey())
}

// Encrypt seals text with a random nonce, which is prefixed to the result.
func Encrypt(text []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, text, nil), nil
}

func Decrypt(text []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(text) < nonceSize {
		return nil, fmt.Errorf("encrypted text is too short")
	}
	nonce, cipherText := text[:nonceSize], text[nonceSize:]
	return gcm.Open(nil, nonce, cipherText, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(c)
}
