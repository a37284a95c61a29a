package pgp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

var (
	errMalformedPacket = errors.New("malformed signature packet")
	errHashTagMismatch = errors.New("hash tag does not match data")
)

// parseSignature reads signature as exactly one binary-document signature
// packet. The packet header must declare the length of the bytes that follow
// it, and the RSA value must carry its canonical bit length. The openpgp
// reader tolerates both being off, so they are checked here.
func parseSignature(signature []byte) (*packet.Signature, error) {
	if err := checkFraming(signature); err != nil {
		return nil, err
	}

	r := bytes.NewReader(signature)
	p, err := packet.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedPacket, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errMalformedPacket, r.Len())
	}

	sig, ok := p.(*packet.Signature)
	if !ok {
		return nil, fmt.Errorf("%w: packet is %T", errMalformedPacket, p)
	}
	if sig.SigType != packet.SigTypeBinary {
		return nil, fmt.Errorf("%w: signature type %#x", errMalformedPacket, sig.SigType)
	}
	if sig.RSASignature == nil {
		return nil, fmt.Errorf("%w: not an RSA signature", errMalformedPacket)
	}

	value := sig.RSASignature.Bytes()
	want := 0
	if len(value) > 0 {
		if value[0] == 0 {
			return nil, fmt.Errorf("%w: RSA value has leading zero octets", errMalformedPacket)
		}
		want = 8*(len(value)-1) + bits.Len8(value[0])
	}
	if got := int(sig.RSASignature.BitLength()); got != want {
		return nil, fmt.Errorf("%w: RSA value declares %d bits, holds %d", errMalformedPacket, got, want)
	}
	return sig, nil
}

// checkFraming checks the packet header of signature (RFC 4880 section 4.2)
// against the number of bytes after it. Partial and indeterminate lengths are
// rejected.
func checkFraming(signature []byte) error {
	if len(signature) < 2 {
		return fmt.Errorf("%w: %d bytes", errMalformedPacket, len(signature))
	}

	ctb := signature[0]
	if ctb&0x80 == 0 {
		return fmt.Errorf("%w: tag octet %#x", errMalformedPacket, ctb)
	}

	var headerLen, bodyLen int
	if ctb&0x40 == 0 {
		switch ctb & 0x03 {
		case 0:
			headerLen, bodyLen = 2, int(signature[1])
		case 1:
			headerLen = 3
			if len(signature) >= headerLen {
				bodyLen = int(binary.BigEndian.Uint16(signature[1:3]))
			}
		case 2:
			headerLen = 5
			if len(signature) >= headerLen {
				bodyLen = int(binary.BigEndian.Uint32(signature[1:5]))
			}
		default:
			return fmt.Errorf("%w: indeterminate length", errMalformedPacket)
		}
	} else {
		switch first := signature[1]; {
		case first < 192:
			headerLen, bodyLen = 2, int(first)
		case first < 224:
			headerLen = 3
			if len(signature) >= headerLen {
				bodyLen = (int(first)-192)<<8 + int(signature[2]) + 192
			}
		case first == 255:
			headerLen = 6
			if len(signature) >= headerLen {
				bodyLen = int(binary.BigEndian.Uint32(signature[2:6]))
			}
		default:
			return fmt.Errorf("%w: partial length", errMalformedPacket)
		}
	}

	if len(signature) < headerLen || len(signature)-headerLen != bodyLen {
		return fmt.Errorf("%w: header declares %d body bytes, have %d",
			errMalformedPacket, bodyLen, max(len(signature)-headerLen, 0))
	}
	return nil
}

// checkHashTag compares the two hash octets stored in sig with the digest of
// data. Signature verification of v4 packets does not look at them.
func checkHashTag(sig *packet.Signature, data []byte) error {
	h, err := sig.PrepareVerify()
	if err != nil {
		return err
	}
	_, _ = h.Write(data)
	if err := packet.VerifyHashTag(h, sig); err != nil {
		return fmt.Errorf("%w: %w", errHashTagMismatch, err)
	}
	return nil
}
