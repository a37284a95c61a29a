// Package pkgsig signs and verifies packages through the crypto capabilities.
//
// A package is a header and a payload. Signing produces a Block holding an
// RSA signature over the header, an RSA signature over header and payload,
// and the package digests. Verification checks the digests first and then
// both signatures.
package pkgsig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cmeister2/fez/internal/clock"
	"github.com/cmeister2/fez/internal/crypto"
	"github.com/cmeister2/fez/internal/crypto/algorithm"
	"github.com/cmeister2/fez/internal/ctxutil"
	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// Engine signs and verifies packages. S is the signature type of the signer.
// An Engine is safe for concurrent use if its signer and verifier are.
type Engine[S crypto.Signature] struct {
	signer   crypto.Signing[algorithm.RSA, S]
	verifier crypto.Verifying[algorithm.RSA]
	clock    clock.Clock
}

// New returns an Engine that can both sign and verify.
func New[S crypto.Signature](signer crypto.Signing[algorithm.RSA, S], verifier crypto.Verifying[algorithm.RSA]) *Engine[S] {
	return &Engine[S]{signer: signer, verifier: verifier, clock: clock.RealClock{}}
}

// NewSignOnly returns an Engine without a verifier. Calling Verify on it
// panics.
func NewSignOnly[S crypto.Signature](signer crypto.Signing[algorithm.RSA, S]) *Engine[S] {
	return New[S](signer, crypto.Absent[algorithm.RSA]{})
}

// NewVerifyOnly returns an Engine without a signer. Calling Sign on it
// panics.
func NewVerifyOnly(verifier crypto.Verifying[algorithm.RSA]) *Engine[[]byte] {
	return New[[]byte](crypto.Absent[algorithm.RSA]{}, verifier)
}

// WithClock sets the clock used to stamp signature blocks.
func (e *Engine[S]) WithClock(c clock.Clock) *Engine[S] {
	e.clock = c
	return e
}

// Sign computes the digests of a package and signs it.
func (e *Engine[S]) Sign(ctx context.Context, header, payload []byte) (*Block, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	block := &Block{
		ID:          uuid.New(),
		Algorithm:   algorithm.Name[algorithm.RSA](),
		Signer:      e.signer.String(),
		Created:     e.clock.Now().UTC().Truncate(time.Second),
		PayloadSize: int64(len(payload)),
		Digests:     ComputeDigests(header, payload),
	}
	logger := zerolog.Ctx(ctx).With().
		Str("component", "pkgsig").
		Str("block_id", block.ID.String()).
		Logger()

	headerAndPayload := concat(header, payload)
	err := parallel(ctx,
		func(ctx context.Context) error {
			sig, err := e.sign(ctx, header)
			if err != nil {
				return fmt.Errorf("header signature: %w", err)
			}
			block.HeaderSignature = sig
			return nil
		},
		func(ctx context.Context) error {
			sig, err := e.sign(ctx, headerAndPayload)
			if err != nil {
				return fmt.Errorf("header and payload signature: %w", err)
			}
			block.HeaderAndPayloadSignature = sig
			return nil
		},
	)
	if err != nil {
		logger.Debug().Err(err).Msg("signing failed")
		return nil, err
	}

	logger.Info().
		Str("signer", block.Signer).
		Int64("payload_size", block.PayloadSize).
		Msg("package signed")
	return block, nil
}

func (e *Engine[S]) sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	sig, err := e.signer.Sign(data)
	if err != nil {
		if !errors.Is(err, fezerrors.ErrSigningFailed) {
			err = fmt.Errorf("%w: %w", fezerrors.ErrSigningFailed, err)
		}
		return nil, err
	}
	return []byte(sig), nil
}

// Verify checks a package against its signature block. Digests are checked
// first; a mismatch wraps errors.ErrDigestMismatch. Signature failures wrap
// errors.ErrVerificationFailed.
func (e *Engine[S]) Verify(ctx context.Context, header, payload []byte, block *Block) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if block == nil {
		return fmt.Errorf("%w: nil block", fezerrors.ErrInvalidSignatureBlock)
	}

	logger := zerolog.Ctx(ctx).With().
		Str("component", "pkgsig").
		Str("block_id", block.ID.String()).
		Logger()

	if want := algorithm.Name[algorithm.RSA](); block.Algorithm != want {
		return fmt.Errorf("%w: algorithm %q, want %q", fezerrors.ErrInvalidSignatureBlock, block.Algorithm, want)
	}
	if block.PayloadSize != int64(len(payload)) {
		return fmt.Errorf("%w: payload size %d, recorded %d", fezerrors.ErrDigestMismatch, len(payload), block.PayloadSize)
	}
	if err := ComputeDigests(header, payload).Check(block.Digests); err != nil {
		logger.Debug().Err(err).Msg("digest check failed")
		return err
	}

	headerAndPayload := concat(header, payload)
	err := parallel(ctx,
		func(ctx context.Context) error {
			return e.verify(ctx, "header signature", header, block.HeaderSignature)
		},
		func(ctx context.Context) error {
			return e.verify(ctx, "header and payload signature", headerAndPayload, block.HeaderAndPayloadSignature)
		},
	)
	if err != nil {
		logger.Debug().Err(err).Msg("verification failed")
		return err
	}

	logger.Info().Str("verifier", e.verifier.String()).Msg("package verified")
	return nil
}

func (e *Engine[S]) verify(ctx context.Context, what string, data, sig []byte) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if err := e.verifier.Verify(data, sig); err != nil {
		if !errors.Is(err, fezerrors.ErrVerificationFailed) {
			err = fmt.Errorf("%w: %w", fezerrors.ErrVerificationFailed, err)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// parallel runs fns concurrently and returns the first error. A panic in any
// of them is re-raised on the calling goroutine after all have returned.
func parallel(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu       sync.Mutex
		panicked any
	)
	for _, fn := range fns {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if panicked == nil {
						panicked = r
					}
					mu.Unlock()
					err = errPanicked
				}
			}()
			return fn(gctx)
		})
	}

	err := g.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return err
}

var errPanicked = errors.New("panicked")

func concat(header, payload []byte) []byte {
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}
