package pkgsig

import (
	"bytes"
	"crypto/md5"  //nolint:gosec // Fixed by the package format
	"crypto/sha1" //nolint:gosec // Fixed by the package format
	"fmt"

	sha256 "github.com/minio/sha256-simd"

	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// Digests are the integrity digests recorded next to package signatures.
// Their algorithms and coverage are fixed by the package format.
type Digests struct {
	// MD5 covers the header and the payload.
	MD5 []byte
	// SHA1 covers the header.
	SHA1 []byte
	// SHA256 covers the header.
	SHA256 []byte
}

// ComputeDigests computes all digests for a package.
func ComputeDigests(header, payload []byte) Digests {
	h := md5.New() //nolint:gosec // Fixed by the package format
	h.Write(header)
	h.Write(payload)

	sha1Sum := sha1.Sum(header) //nolint:gosec // Fixed by the package format
	sha256Sum := sha256.Sum256(header)

	return Digests{
		MD5:    h.Sum(nil),
		SHA1:   sha1Sum[:],
		SHA256: sha256Sum[:],
	}
}

// Check compares d, computed from package content, against the recorded
// digests. The error wraps errors.ErrDigestMismatch and names the first
// digest that differs.
func (d Digests) Check(recorded Digests) error {
	for _, c := range []struct {
		name          string
		got, recorded []byte
	}{
		{"sha256", d.SHA256, recorded.SHA256},
		{"sha1", d.SHA1, recorded.SHA1},
		{"md5", d.MD5, recorded.MD5},
	} {
		if !bytes.Equal(c.got, c.recorded) {
			return fmt.Errorf("%w: %s", fezerrors.ErrDigestMismatch, c.name)
		}
	}
	return nil
}
