// Package contract binds the SkillCertification contract: its Truffle
// artifact, its per-network deployments and a handle for calling it.
package contract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/mod/semver"
)

// Method names the artifact's ABI must provide.
const (
	MethodAddSkill  = "addSkill"
	MethodIsGenuine = "isGenuine"
)

// Artifact errors.
var (
	ErrInvalidArtifact    = errors.New("invalid contract artifact")
	ErrIncompatibleABI    = errors.New("contract ABI lacks required methods")
	ErrUnsupportedVersion = errors.New("unsupported artifact schema version")
)

//go:embed artifacts/SkillCertification.json
var defaultArtifact []byte

// Artifact is a Truffle build artifact.
type Artifact struct {
	ContractName  string             `json:"contractName"`
	ABI           json.RawMessage    `json:"abi"`
	Networks      map[string]Network `json:"networks"`
	SchemaVersion string             `json:"schemaVersion,omitempty"`

	parsed abi.ABI
}

// Network is one entry of an artifact's networks map.
type Network struct {
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// DefaultArtifact returns the embedded SkillCertification artifact.
func DefaultArtifact() *Artifact {
	a, err := ParseArtifact(defaultArtifact)
	if err != nil {
		panic(fmt.Sprintf("embedded artifact: %v", err))
	}
	return a
}

// LoadArtifact reads an artifact from disk. An empty path yields the
// embedded artifact.
func LoadArtifact(path string) (*Artifact, error) {
	if path == "" {
		return DefaultArtifact(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes and validates a Truffle artifact.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if len(a.ABI) == 0 {
		return nil, fmt.Errorf("%w: missing abi", ErrInvalidArtifact)
	}

	if a.SchemaVersion != "" {
		v := "v" + a.SchemaVersion
		if !semver.IsValid(v) || semver.Major(v) != "v3" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, a.SchemaVersion)
		}
	}

	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	for _, name := range []string{MethodAddSkill, MethodIsGenuine} {
		if _, ok := parsed.Methods[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrIncompatibleABI, name)
		}
	}
	a.parsed = parsed

	for id, n := range a.Networks {
		if !common.IsHexAddress(n.Address) {
			return nil, fmt.Errorf("%w: network %s has invalid address %q", ErrInvalidArtifact, id, n.Address)
		}
	}

	return &a, nil
}

// Interface returns the parsed ABI.
func (a *Artifact) Interface() abi.ABI {
	return a.parsed
}

// Deployments returns the artifact's networks merged with overrides.
// Overrides win when both name the same network.
func (a *Artifact) Deployments(overrides map[string]string) (Deployments, error) {
	d := make(Deployments, len(a.Networks)+len(overrides))
	for id, n := range a.Networks {
		d[id] = common.HexToAddress(n.Address)
	}
	for id, addr := range overrides {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: network %s has invalid address %q", ErrInvalidArtifact, id, addr)
		}
		d[id] = common.HexToAddress(addr)
	}
	return d, nil
}
