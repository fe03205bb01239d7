package goSession

import "strings"

// ProfileType classifies a profile. Role flags are derived from it and never
// stored separately.
type ProfileType uint8

const (
	ProfileTypeUnknown ProfileType = iota
	ProfileTypeMember
	ProfileTypeCoach
	ProfileTypeNavigator
	ProfileTypeAdmin
)

var profileTypeNames = [...]string{
	ProfileTypeUnknown:   "unknown",
	ProfileTypeMember:    "member",
	ProfileTypeCoach:     "coach",
	ProfileTypeNavigator: "navigator",
	ProfileTypeAdmin:     "admin",
}

// String returns the wire name of the type.
func (t ProfileType) String() string {
	if int(t) < len(profileTypeNames) {
		return profileTypeNames[t]
	}
	return profileTypeNames[ProfileTypeUnknown]
}

// ParseProfileType maps a wire name to a ProfileType. Unrecognized names map
// to ProfileTypeUnknown.
func ParseProfileType(s string) ProfileType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member":
		return ProfileTypeMember
	case "coach":
		return ProfileTypeCoach
	case "navigator":
		return ProfileTypeNavigator
	case "admin":
		return ProfileTypeAdmin
	default:
		return ProfileTypeUnknown
	}
}

// RoleFlags are the boolean role classifiers consumed by page components.
type RoleFlags struct {
	Admin     bool
	Coach     bool
	Navigator bool
}

// RolesFor is the single mapping from profile type to role flags.
func RolesFor(t ProfileType) RoleFlags {
	switch t {
	case ProfileTypeAdmin:
		return RoleFlags{Admin: true}
	case ProfileTypeCoach:
		return RoleFlags{Coach: true}
	case ProfileTypeNavigator:
		return RoleFlags{Navigator: true}
	case ProfileTypeMember, ProfileTypeUnknown:
		return RoleFlags{}
	default:
		return RoleFlags{}
	}
}
