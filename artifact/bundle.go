// Package artifact packages compiled programs into self-describing build
// bundles and publishes them to object storage.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid"
	"github.com/svmpay/bpfasm/compiler"
	"github.com/svmpay/bpfasm/program"
	"github.com/svmpay/bpfasm/syscalls"
	"github.com/svmpay/bpfasm/validator"
)

// FormatVersion is the bundle format written by this package.
const FormatVersion = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Bundle is the result of one successful build.
type Bundle struct {
	Format       int                `cbor:"1,keyasint"`
	ID           string             `cbor:"2,keyasint"`
	Name         string             `cbor:"3,keyasint"`
	Version      string             `cbor:"4,keyasint,omitempty"`
	Type         program.Type       `cbor:"5,keyasint,omitempty"`
	Networks     []syscalls.Network `cbor:"6,keyasint,omitempty"`
	Bytecode     []byte             `cbor:"7,keyasint"`
	Assembly     string             `cbor:"8,keyasint"`
	Warnings     []string           `cbor:"9,keyasint,omitempty"`
	ComputeUnits int                `cbor:"10,keyasint"`
	Checksum     string             `cbor:"11,keyasint"`
	CreatedAt    time.Time          `cbor:"12,keyasint"`
}

// New creates a bundle from a successful compilation.
func New(meta program.Metadata, result *compiler.Result, computeUnits int) (*Bundle, error) {
	if result == nil || !result.Success {
		return nil, fmt.Errorf("artifact: cannot bundle a failed compilation")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("artifact: generate build id: %w", err)
	}
	return &Bundle{
		Format:       FormatVersion,
		ID:           id.String(),
		Name:         meta.Name,
		Version:      meta.Version,
		Type:         meta.Type,
		Networks:     append([]syscalls.Network(nil), meta.Networks...),
		Bytecode:     append([]byte(nil), result.Bytecode...),
		Assembly:     result.Assembly,
		Warnings:     append([]string(nil), result.Warnings...),
		ComputeUnits: computeUnits,
		Checksum:     Checksum(result.Bytecode),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}, nil
}

// Checksum returns the hex SHA-256 digest of image.
func Checksum(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Metadata returns the program metadata recorded in the bundle.
func (b *Bundle) Metadata() program.Metadata {
	return program.Metadata{
		Name:     b.Name,
		Version:  b.Version,
		Type:     b.Type,
		Networks: append([]syscalls.Network(nil), b.Networks...),
	}
}

// Verify checks that the bytecode matches the recorded checksum and passes
// validation.
func (b *Bundle) Verify() error {
	if b.Format != FormatVersion {
		return fmt.Errorf("artifact: unsupported bundle format %d", b.Format)
	}
	if _, err := uuid.FromString(b.ID); err != nil {
		return fmt.Errorf("artifact: invalid build id %q: %w", b.ID, err)
	}
	if got := Checksum(b.Bytecode); got != b.Checksum {
		return fmt.Errorf("artifact: checksum mismatch: recorded %s, computed %s", b.Checksum, got)
	}
	if err := validator.Validate(b.Bytecode).Err(); err != nil {
		return fmt.Errorf("artifact: invalid bytecode: %w", err)
	}
	return nil
}

// Marshal serializes the bundle to canonical CBOR.
func Marshal(b *Bundle) ([]byte, error) {
	return encMode.Marshal(b)
}

// Unmarshal deserializes a bundle from CBOR.
func Unmarshal(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal bundle: %w", err)
	}
	return &b, nil
}
