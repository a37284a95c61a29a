package pkgsig

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// Block is the signature block stored alongside a package: two signatures
// and the package digests.
type Block struct {
	// ID identifies this signing operation in logs.
	ID uuid.UUID
	// Algorithm is the name of the algorithm marker the signatures were made with.
	Algorithm string
	// Signer describes the signer. It holds public information only.
	Signer string
	// Created is when the block was produced, truncated to seconds.
	Created time.Time
	// PayloadSize is the length of the signed payload in bytes.
	PayloadSize int64
	// HeaderSignature covers the header.
	HeaderSignature []byte
	// HeaderAndPayloadSignature covers the header followed by the payload.
	HeaderAndPayloadSignature []byte
	// Digests are the package digests.
	Digests Digests
}

type blockDocument struct {
	ID          string            `yaml:"id"`
	Algorithm   string            `yaml:"algorithm"`
	Signer      string            `yaml:"signer,omitempty"`
	Created     time.Time         `yaml:"created"`
	PayloadSize int64             `yaml:"payload_size"`
	Signatures  signatureDocument `yaml:"signatures"`
	Digests     digestDocument    `yaml:"digests"`
}

type signatureDocument struct {
	Header           string `yaml:"header"`
	HeaderAndPayload string `yaml:"header_and_payload"`
}

type digestDocument struct {
	MD5    string `yaml:"md5"`
	SHA1   string `yaml:"sha1"`
	SHA256 string `yaml:"sha256"`
}

// Encode writes b as YAML. Signatures are base64 and digests are hex.
func (b *Block) Encode(w io.Writer) error {
	doc := blockDocument{
		ID:          b.ID.String(),
		Algorithm:   b.Algorithm,
		Signer:      b.Signer,
		Created:     b.Created.UTC(),
		PayloadSize: b.PayloadSize,
		Signatures: signatureDocument{
			Header:           base64.StdEncoding.EncodeToString(b.HeaderSignature),
			HeaderAndPayload: base64.StdEncoding.EncodeToString(b.HeaderAndPayloadSignature),
		},
		Digests: digestDocument{
			MD5:    hex.EncodeToString(b.Digests.MD5),
			SHA1:   hex.EncodeToString(b.Digests.SHA1),
			SHA256: hex.EncodeToString(b.Digests.SHA256),
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding signature block: %w", err)
	}
	return enc.Close()
}

// DecodeBlock reads a block written by Encode. Any malformed or missing
// field yields an error wrapping errors.ErrInvalidSignatureBlock.
func DecodeBlock(r io.Reader) (*Block, error) {
	var doc blockDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, invalidBlock("yaml: %v", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, invalidBlock("id: %v", err)
	}
	if doc.Algorithm == "" {
		return nil, invalidBlock("algorithm is missing")
	}
	if doc.PayloadSize < 0 {
		return nil, invalidBlock("payload_size is negative")
	}

	b := &Block{
		ID:          id,
		Algorithm:   doc.Algorithm,
		Signer:      doc.Signer,
		Created:     doc.Created,
		PayloadSize: doc.PayloadSize,
	}

	if b.HeaderSignature, err = decodeSignature("header", doc.Signatures.Header); err != nil {
		return nil, err
	}
	if b.HeaderAndPayloadSignature, err = decodeSignature("header_and_payload", doc.Signatures.HeaderAndPayload); err != nil {
		return nil, err
	}

	if b.Digests.MD5, err = decodeDigest("md5", doc.Digests.MD5, 16); err != nil {
		return nil, err
	}
	if b.Digests.SHA1, err = decodeDigest("sha1", doc.Digests.SHA1, 20); err != nil {
		return nil, err
	}
	if b.Digests.SHA256, err = decodeDigest("sha256", doc.Digests.SHA256, 32); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeSignature(name, s string) ([]byte, error) {
	if s == "" {
		return nil, invalidBlock("signatures.%s is missing", name)
	}
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalidBlock("signatures.%s: %v", name, err)
	}
	return sig, nil
}

func decodeDigest(name, s string, size int) ([]byte, error) {
	d, err := hex.DecodeString(s)
	if err != nil {
		return nil, invalidBlock("digests.%s: %v", name, err)
	}
	if len(d) != size {
		return nil, invalidBlock("digests.%s: want %d bytes, got %d", name, size, len(d))
	}
	return d, nil
}

func invalidBlock(format string, args ...any) error {
	return fmt.Errorf("%w: %s", fezerrors.ErrInvalidSignatureBlock, fmt.Sprintf(format, args...))
}
