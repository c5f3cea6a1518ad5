package crypto

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext := []byte("EAATestAccessTokenValue")

	ciphertext, err := Encrypt(plaintext, "hunter2")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if bytes.Contains(ciphertext, plaintext) {
		t.Error("ciphertext contains plaintext")
	}
	if !IsEncrypted(ciphertext) {
		t.Error("IsEncrypted() = false for encrypted data")
	}

	got, err := Decrypt(ciphertext, "hunter2")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	ciphertext, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	_, err = Decrypt(ciphertext, "wrong")
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Decrypt() error = %v, want ErrDecryptFailed", err)
	}
}

func TestDecrypt_InvalidMagic(t *testing.T) {
	_, err := Decrypt([]byte("not an encrypted file at all, just some bytes padding length"), "pw")
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Decrypt() error = %v, want ErrInvalidMagic", err)
	}

	_, err = Decrypt([]byte("tiny"), "pw")
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Decrypt() short input error = %v, want ErrInvalidMagic", err)
	}
}

func TestEncryptToFile_DecryptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.enc")

	if err := EncryptToFile(path, []byte("EAAToken\n"), "pw"); err != nil {
		t.Fatalf("EncryptToFile() error = %v", err)
	}

	got, err := DecryptFile(path, "pw")
	if err != nil {
		t.Fatalf("DecryptFile() error = %v", err)
	}
	if string(got) != "EAAToken\n" {
		t.Errorf("DecryptFile() = %q", got)
	}
}
