package registry

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/sigstore/cosign/v2/pkg/cosign"
)

// VerifySignature checks that ref carries a valid cosign signature
// verifiable under publicKeyRef (a local PEM file path or a KMS URI, per
// cosign.LoadPublicKey's own convention). Used when a plugin's registry
// source sets require_signature: true (spec.md 4.D: signature failure is
// reported separately from a checksum mismatch, grounded on the teacher's
// IntegrityVerifier/PublicKey shouldSign path).
//
// Keyless (Fulcio/Rekor) verification is out of scope here: every pack
// reference to cosign (reglet's own go.mod, plus two other_examples
// config structs) only ever declares the dependency or a boolean
// "cosign_verify" config flag, never a concrete call site, so this wraps
// cosign's longest-stable key-based entrypoint rather than guessing at a
// keyless flow no example actually exercises.
func VerifySignature(ctx context.Context, ref, publicKeyRef string) error {
	signedRef, err := name.ParseReference(ref)
	if err != nil {
		return fmt.Errorf("parsing signed reference %q: %w", ref, err)
	}

	verifier, err := cosign.LoadPublicKey(ctx, publicKeyRef)
	if err != nil {
		return fmt.Errorf("loading cosign public key %q: %w", publicKeyRef, err)
	}

	co := &cosign.CheckOpts{
		SigVerifier: verifier,
		IgnoreTlog:  true,
	}
	if _, _, err := cosign.VerifyImageSignatures(ctx, signedRef, co); err != nil {
		return fmt.Errorf("verifying signature of %q: %w", ref, err)
	}
	return nil
}
