package scenario

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	errUtils "github.com/scenforge/scenforge/errors"
)

// Capabilities describes the version-dependent behaviors of the target
// model. The table below replaces version comparisons scattered across
// operations; it is resolved per operation, not once globally, so one run
// can mix scenarios targeting different model versions.
type Capabilities struct {
	// UniqueComponentNames: reference configurations before 4.3.0 ship
	// colliding component names, and root scenarios need a one-time
	// renaming pass.
	UniqueComponentNames bool

	// FlatInputLayout: versions after 5.1.0 drop the per-topic xml
	// subdirectories (energy-xml, aglu-xml, ...) under input.
	FlatInputLayout bool

	// WriteOutputCSV: the outFileName CSV output option exists only
	// before 5.1.2.
	WriteOutputCSV bool

	// RestartFiles: restart-file output exists from 5.1.2 on.
	RestartFiles bool

	// ProtectedLandEmissions: from 5.0.0, protected land carries its own
	// emissions component that land-protection edits must track.
	ProtectedLandEmissions bool
}

// capabilityRule contributes one capability for versions matching its
// constraint.
type capabilityRule struct {
	constraint string
	apply      func(*Capabilities)
}

var capabilityRules = []capabilityRule{
	{">= 4.3.0", func(c *Capabilities) { c.UniqueComponentNames = true }},
	{"> 5.1.0", func(c *Capabilities) { c.FlatInputLayout = true }},
	{"< 5.1.2", func(c *Capabilities) { c.WriteOutputCSV = true }},
	{">= 5.1.2", func(c *Capabilities) { c.RestartFiles = true }},
	{">= 5.0.0", func(c *Capabilities) { c.ProtectedLandEmissions = true }},
}

// supportedVersions bounds the versions this tooling knows how to drive.
var supportedVersions = mustConstraint(">= 4.2.0, < 8.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ResolveCapabilities parses a model version string and resolves the
// capability table against it. A version outside the supported range is a
// configuration error naming the offending input.
func ResolveCapabilities(version string) (Capabilities, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %q", errUtils.ErrUnknownVersion, version)
	}
	if !supportedVersions.Check(v) {
		return Capabilities{}, fmt.Errorf("%w: %q is outside the supported range %s",
			errUtils.ErrUnknownVersion, version, supportedVersions)
	}

	var caps Capabilities
	for _, rule := range capabilityRules {
		if mustConstraint(rule.constraint).Check(v) {
			rule.apply(&caps)
		}
	}
	return caps, nil
}
