package analysis

import (
	"cmp"
	"fmt"
	"strings"
)

// CompiledUnit is one compiled output artifact.
//
// Identity is (Name, Path, OutputFolder). Hash is observed state and takes no
// part in equality or ordering.
type CompiledUnit struct {
	Name         string `json:"name" yaml:"name" toml:"name"`
	Path         string `json:"path" yaml:"path" toml:"path"`
	OutputFolder string `json:"outputFolder" yaml:"outputFolder" toml:"outputFolder"`
	Hash         string `json:"hash" yaml:"hash" toml:"hash"`
}

// UnitKey is the identity part of a CompiledUnit, usable as a map key.
type UnitKey struct {
	Name         string
	Path         string
	OutputFolder string
}

// Key returns the identity of the unit.
func (u CompiledUnit) Key() UnitKey {
	return UnitKey{Name: u.Name, Path: u.Path, OutputFolder: u.OutputFolder}
}

// normalized replaces invalid UTF-8 in the unit with U+FFFD, the form the
// strings take after an Encode/Decode round trip.
func (u CompiledUnit) normalized() CompiledUnit {
	u.Name = validUTF8(u.Name)
	u.Path = validUTF8(u.Path)
	u.OutputFolder = validUTF8(u.OutputFolder)
	u.Hash = validUTF8(u.Hash)
	return u
}

func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func (u CompiledUnit) String() string {
	return fmt.Sprintf("%s (%s in %s)", u.Name, u.Path, u.OutputFolder)
}

// CompareUnits orders units lexicographically by name, path, then output folder.
func CompareUnits(a, b CompiledUnit) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	return cmp.Compare(a.OutputFolder, b.OutputFolder)
}
