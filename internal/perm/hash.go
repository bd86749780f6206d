package perm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// allows a future algorithm migration without colliding with old hashes.
const (
	DomainSnapshot = "grove/snapshot/v1"
	DomainStep     = "grove/step/v1"
)

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes the content-addressed id of a serialized forest
// snapshot. Two snapshots with identical logical content hash identically
// regardless of when or where they were taken.
func SnapshotHash(body map[string]any) (string, error) {
	canonical, err := MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// StepHash computes the content-addressed id of a trace step record.
func StepHash(body map[string]any) (string, error) {
	canonical, err := MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("StepHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStep, canonical), nil
}
