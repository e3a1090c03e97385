package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
)

// Sealed file layout: version | iv | aes salt | hmac salt | ciphertext | hmac.
// The hmac covers everything after the version byte up to the end of the
// ciphertext. Keys are derived from the passphrase with scrypt.
const (
	sealVersion byte = 0x1
	ivSize           = aes.BlockSize
	saltSize         = 32
	macSize          = sha512.Size
	headerSize       = 1 + ivSize + 2*saltSize
)

// ErrSealAuth is returned when a sealed file fails authentication: wrong
// passphrase or altered content.
var ErrSealAuth = errors.New("wrong passphrase or corrupted file")

// SealFile encrypts src into dest with a key derived from passphrase.
func SealFile(src, dest string, passphrase []byte) error {
	if len(passphrase) == 0 {
		return errors.New("empty passphrase")
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	if err := seal(in, out, passphrase); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func seal(in io.Reader, out io.Writer, passphrase []byte) error {
	keyAES, saltAES, err := deriveKey(passphrase, nil)
	if err != nil {
		return err
	}
	keyMAC, saltMAC, err := deriveKey(passphrase, nil)
	if err != nil {
		return err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return err
	}

	block, err := aes.NewCipher(keyAES)
	if err != nil {
		return err
	}
	mac := hmac.New(sha512.New, keyMAC)

	if _, err := out.Write([]byte{sealVersion}); err != nil {
		return err
	}
	w := io.MultiWriter(out, mac)
	for _, part := range [][]byte{iv, saltAES, saltMAC} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}

	stream := cipher.StreamWriter{S: cipher.NewCTR(block, iv), W: w}
	if _, err := io.Copy(stream, in); err != nil {
		return err
	}
	_, err = out.Write(mac.Sum(nil))
	return err
}

// OpenSealedFile authenticates src and, only when the check passes, writes
// the decrypted content to dest.
func OpenSealedFile(src, dest string, passphrase []byte) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	if st.Size() < headerSize+macSize {
		return fmt.Errorf("%w: %s is too short", ErrSealAuth, src)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(in, header); err != nil {
		return err
	}
	if header[0] != sealVersion {
		return fmt.Errorf("%w: unknown format version %d", ErrSealAuth, header[0])
	}
	iv := header[1 : 1+ivSize]
	saltAES := header[1+ivSize : 1+ivSize+saltSize]
	saltMAC := header[1+ivSize+saltSize:]

	keyAES, _, err := deriveKey(passphrase, saltAES)
	if err != nil {
		return err
	}
	keyMAC, _, err := deriveKey(passphrase, saltMAC)
	if err != nil {
		return err
	}

	bodySize := st.Size() - headerSize - macSize
	expected := make([]byte, macSize)
	if _, err := in.ReadAt(expected, headerSize+bodySize); err != nil {
		return err
	}

	mac := hmac.New(sha512.New, keyMAC)
	mac.Write(header[1:])
	if _, err := io.Copy(mac, io.NewSectionReader(in, headerSize, bodySize)); err != nil {
		return err
	}
	if !hmac.Equal(expected, mac.Sum(nil)) {
		return ErrSealAuth
	}

	block, err := aes.NewCipher(keyAES)
	if err != nil {
		return err
	}
	plain := cipher.StreamReader{S: cipher.NewCTR(block, iv), R: io.NewSectionReader(in, headerSize, bodySize)}
	return WriteFrom(dest, plain, 0o600)
}

func deriveKey(passphrase, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	key, err := scrypt.Key(passphrase, salt, 32768, 8, 1, 32)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}
