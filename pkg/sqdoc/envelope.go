package sqdoc

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

// SealedMagic opens every compressed or encrypted container.
const SealedMagic = "SQDOC-SPANS-SEALED"

const (
	sealedVersion = uint16(2)
	kdfIterations = 200000
	keySize       = 32
)

type sealFlags uint16

const (
	sealCompressed sealFlags = 1 << iota
	sealEncrypted
)

// sealedHeader follows SealedMagic. The document id stays readable without the
// password and is authenticated together with the ciphertext.
type sealedHeader struct {
	Version uint16
	Flags   sealFlags
	ID      uuid.UUID
	Salt    [16]byte
	Nonce   [12]byte
	Length  uint64
}

var sealedHeaderSize = len(SealedMagic) + binary.Size(sealedHeader{})

var (
	ErrPasswordRequired  = errors.New("sqdoc: password required")
	ErrInvalidPassword   = errors.New("sqdoc: invalid password")
	ErrInvalidSecureFile = errors.New("sqdoc: invalid secure file")
)

type EncryptionOptions struct {
	Enabled  bool
	Password string
}

type SaveOptions struct {
	Compression bool
	Encryption  EncryptionOptions
}

func (o SaveOptions) sealed() bool {
	return o.Compression || o.Encryption.Enabled
}

type LoadOptions struct {
	Password string
}

// EnvelopeInfo describes the outer layer of a container. ID is only known for
// wrapped containers.
type EnvelopeInfo struct {
	Wrapped    bool
	Compressed bool
	Encrypted  bool
	Version    uint16
	ID         uuid.UUID
}

func InspectEnvelope(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return InspectEnvelopeBytes(b)
}

func InspectEnvelopeBytes(b []byte) (EnvelopeInfo, error) {
	if !isSealed(b) {
		return EnvelopeInfo{}, nil
	}
	hdr, err := readSealedHeader(b)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return EnvelopeInfo{
		Wrapped:    true,
		Compressed: hdr.Flags&sealCompressed != 0,
		Encrypted:  hdr.Flags&sealEncrypted != 0,
		Version:    hdr.Version,
		ID:         hdr.ID,
	}, nil
}

func isSealed(b []byte) bool {
	return bytes.HasPrefix(b, []byte(SealedMagic))
}

func readSealedHeader(b []byte) (sealedHeader, error) {
	var hdr sealedHeader
	if len(b) < sealedHeaderSize {
		return hdr, ErrInvalidSecureFile
	}
	if err := binary.Read(bytes.NewReader(b[len(SealedMagic):]), binary.LittleEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("%w: %w", ErrInvalidSecureFile, err)
	}
	if hdr.Version != sealedVersion {
		return hdr, fmt.Errorf("%w: secure envelope version %d", ErrUnsupportedVer, hdr.Version)
	}
	if hdr.Length != uint64(len(b)-sealedHeaderSize) {
		return hdr, ErrInvalidSecureFile
	}
	return hdr, nil
}

func aeadFor(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal wraps an encoded container of document id.
func seal(payload []byte, id uuid.UUID, opts SaveOptions) ([]byte, error) {
	hdr := sealedHeader{Version: sealedVersion, ID: id}
	var err error
	if opts.Compression {
		hdr.Flags |= sealCompressed
		if payload, err = deflate(payload); err != nil {
			return nil, err
		}
	}
	if opts.Encryption.Enabled {
		if strings.TrimSpace(opts.Encryption.Password) == "" {
			return nil, ErrPasswordRequired
		}
		hdr.Flags |= sealEncrypted
		if _, err := rand.Read(hdr.Salt[:]); err != nil {
			return nil, err
		}
		if _, err := rand.Read(hdr.Nonce[:]); err != nil {
			return nil, err
		}
		aead, err := aeadFor(opts.Encryption.Password, hdr.Salt[:])
		if err != nil {
			return nil, err
		}
		payload = aead.Seal(nil, hdr.Nonce[:], payload, id[:])
	}
	hdr.Length = uint64(len(payload))

	out := bytes.NewBuffer(make([]byte, 0, sealedHeaderSize+len(payload)))
	out.WriteString(SealedMagic)
	if err := binary.Write(out, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	out.Write(payload)
	return out.Bytes(), nil
}

// unseal returns the inner container and the id recorded in the envelope.
func unseal(b []byte, opts LoadOptions) ([]byte, uuid.UUID, error) {
	hdr, err := readSealedHeader(b)
	if err != nil {
		return nil, uuid.Nil, err
	}
	payload := bytes.Clone(b[sealedHeaderSize:])

	if hdr.Flags&sealEncrypted != 0 {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, hdr.ID, ErrPasswordRequired
		}
		aead, err := aeadFor(opts.Password, hdr.Salt[:])
		if err != nil {
			return nil, hdr.ID, err
		}
		if payload, err = aead.Open(nil, hdr.Nonce[:], payload, hdr.ID[:]); err != nil {
			return nil, hdr.ID, ErrInvalidPassword
		}
	}
	if hdr.Flags&sealCompressed != 0 {
		if payload, err = inflate(payload); err != nil {
			return nil, hdr.ID, fmt.Errorf("%w: %w", ErrInvalidSecureFile, err)
		}
	}
	return payload, hdr.ID, nil
}

func deflate(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(in)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return buf.Bytes(), err
}

func inflate(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
