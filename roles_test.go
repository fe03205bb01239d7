package goSession

import "testing"

func TestRolesForIsExhaustive(t *testing.T) {
	cases := []struct {
		typ  ProfileType
		want RoleFlags
	}{
		{ProfileTypeUnknown, RoleFlags{}},
		{ProfileTypeMember, RoleFlags{}},
		{ProfileTypeCoach, RoleFlags{Coach: true}},
		{ProfileTypeNavigator, RoleFlags{Navigator: true}},
		{ProfileTypeAdmin, RoleFlags{Admin: true}},
		{ProfileType(200), RoleFlags{}},
	}
	for _, tc := range cases {
		if got := RolesFor(tc.typ); got != tc.want {
			t.Errorf("RolesFor(%s) = %+v, want %+v", tc.typ, got, tc.want)
		}
	}
}

func TestParseProfileTypeRoundTripsNames(t *testing.T) {
	for _, typ := range []ProfileType{ProfileTypeMember, ProfileTypeCoach, ProfileTypeNavigator, ProfileTypeAdmin} {
		if got := ParseProfileType(typ.String()); got != typ {
			t.Errorf("ParseProfileType(%q) = %v", typ.String(), got)
		}
	}
	if got := ParseProfileType("  ADMIN "); got != ProfileTypeAdmin {
		t.Errorf("expected case-insensitive parse, got %v", got)
	}
	if got := ParseProfileType("owner"); got != ProfileTypeUnknown {
		t.Errorf("expected unknown, got %v", got)
	}
}

func TestStateRolesFollowActiveProfile(t *testing.T) {
	var s State
	if s.Roles() != (RoleFlags{}) {
		t.Fatal("no active profile means no roles")
	}
	s.ActiveProfile = &Profile{ID: "1", Type: ProfileTypeNavigator}
	if !s.Roles().Navigator || s.Roles().Admin {
		t.Fatalf("unexpected roles %+v", s.Roles())
	}
}
