// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fingerprint normalizes snapshot trees into hashable
// fingerprints under a per-property normalization policy.
package fingerprint

import "fmt"

// PathIdentity selects which part of a path identifies an entry inside
// a fingerprint.
type PathIdentity int

const (
	AbsolutePath PathIdentity = iota
	RelativePath
	NameOnly
	IgnoredPath
	Classpath
	CompileClasspath
)

var pathIdentityNames = map[PathIdentity]string{
	AbsolutePath:     "ABSOLUTE_PATH",
	RelativePath:     "RELATIVE_PATH",
	NameOnly:         "NAME_ONLY",
	IgnoredPath:      "IGNORED_PATH",
	Classpath:        "CLASSPATH",
	CompileClasspath: "COMPILE_CLASSPATH",
}

func (p PathIdentity) String() string { return pathIdentityNames[p] }

// ParsePathIdentity resolves the wire/config name of a path identity.
func ParsePathIdentity(name string) (PathIdentity, error) {
	for id, n := range pathIdentityNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("fingerprint: unknown path identity %q", name)
}

// DirectorySensitivity controls whether directories contribute entries.
type DirectorySensitivity int

const (
	DefaultDirectorySensitivity DirectorySensitivity = iota
	IgnoreDirectories
)

func (d DirectorySensitivity) String() string {
	if d == IgnoreDirectories {
		return "IGNORE_DIRECTORIES"
	}
	return "DEFAULT"
}

// ParseDirectorySensitivity resolves the config name of a sensitivity.
func ParseDirectorySensitivity(name string) (DirectorySensitivity, error) {
	switch name {
	case "DEFAULT", "":
		return DefaultDirectorySensitivity, nil
	case "IGNORE_DIRECTORIES":
		return IgnoreDirectories, nil
	}
	return 0, fmt.Errorf("fingerprint: unknown directory sensitivity %q", name)
}

// LineEndingSensitivity controls whether text line terminators are
// canonicalized before content hashing.
type LineEndingSensitivity int

const (
	DefaultLineEndings LineEndingSensitivity = iota
	NormalizeLineEndings
)

func (l LineEndingSensitivity) String() string {
	if l == NormalizeLineEndings {
		return "NORMALIZE_LINE_ENDINGS"
	}
	return "DEFAULT"
}

// ParseLineEndingSensitivity resolves the config name of a sensitivity.
func ParseLineEndingSensitivity(name string) (LineEndingSensitivity, error) {
	switch name {
	case "DEFAULT", "":
		return DefaultLineEndings, nil
	case "NORMALIZE_LINE_ENDINGS":
		return NormalizeLineEndings, nil
	}
	return 0, fmt.Errorf("fingerprint: unknown line ending sensitivity %q", name)
}

// Policy is the three-axis normalization configuration for one declared
// input file property. The axes are orthogonal and reported separately;
// reporters index attributes by their axis prefix.
type Policy struct {
	PathIdentity          PathIdentity
	DirectorySensitivity  DirectorySensitivity
	LineEndingSensitivity LineEndingSensitivity
}

// Attribute prefixes identify the axis an attribute belongs to.
const (
	StrategyAttributePrefix              = "FINGERPRINTING_STRATEGY_"
	DirectorySensitivityAttributePrefix  = "DIRECTORY_SENSITIVITY_"
	LineEndingSensitivityAttributePrefix = "LINE_ENDING_SENSITIVITY_"
)

// Attributes returns the per-axis attribute names, one per axis, in a
// fixed order.
func (p Policy) Attributes() []string {
	return []string{
		StrategyAttributePrefix + p.PathIdentity.String(),
		DirectorySensitivityAttributePrefix + p.DirectorySensitivity.String(),
		LineEndingSensitivityAttributePrefix + p.LineEndingSensitivity.String(),
	}
}
