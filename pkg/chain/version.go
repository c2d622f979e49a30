package chain

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// EraID is the monotonically increasing era counter.
type EraID uint64

// ProtocolVersion is the node protocol version in major.minor.patch form.
// Pre-release and build metadata are not part of the protocol scheme.
type ProtocolVersion struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// ParseProtocolVersion parses a strict "major.minor.patch" string.
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid protocol version %q: %w", s, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return ProtocolVersion{}, fmt.Errorf("protocol version %q must not carry pre-release or metadata", s)
	}
	return ProtocolVersion{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v ProtocolVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *ProtocolVersion) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseProtocolVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
