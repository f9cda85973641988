package users

import "testing"

func TestCanFollow(t *testing.T) {
	cases := []struct {
		requesterRole string
		targetRole    string
		want          bool
	}{
		{RoleUser, RoleModel, true},
		{RoleUser, RoleUser, false},   // only models can be followed
		{RoleModel, RoleModel, false}, // models cannot follow
		{RoleModel, RoleUser, false},
	}
	for _, tc := range cases {
		if got := CanFollow(tc.requesterRole, tc.targetRole); got != tc.want {
			t.Errorf("CanFollow(%q, %q) = %v, want %v", tc.requesterRole, tc.targetRole, got, tc.want)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"ann", "Ann_Lee", "user_123", "abcdefghijklmnopqrstuvwxyz1234"}
	for _, username := range valid {
		if err := ValidateUsername(username); err != nil {
			t.Errorf("ValidateUsername(%q) unexpected error: %v", username, err)
		}
	}

	invalid := []string{"", "ab", "has space", "dot.name", "abcdefghijklmnopqrstuvwxyz12345"}
	for _, username := range invalid {
		if err := ValidateUsername(username); err == nil {
			t.Errorf("ValidateUsername(%q) expected error, got nil", username)
		}
	}
}

func TestValidateRole(t *testing.T) {
	if err := ValidateRole(RoleUser); err != nil {
		t.Errorf("unexpected error for role user: %v", err)
	}
	if err := ValidateRole(RoleModel); err != nil {
		t.Errorf("unexpected error for role model: %v", err)
	}
	if err := ValidateRole("admin"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStringArrayScan(t *testing.T) {
	var a StringArray
	if err := a.Scan([]byte(`{abc,def}`)); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if len(a) != 2 || a[0] != "abc" || a[1] != "def" {
		t.Errorf("unexpected scan result: %v", a)
	}

	var empty StringArray
	if err := empty.Scan([]byte(`{}`)); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty array, got %v", empty)
	}

	var fromNil StringArray
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if len(fromNil) != 0 {
		t.Errorf("expected empty array from NULL, got %v", fromNil)
	}
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray{"a", "b"}.Value()
	if err != nil {
		t.Fatalf("unexpected value error: %v", err)
	}
	if v != `{"a","b"}` {
		t.Errorf("unexpected value: %v", v)
	}

	v, err = StringArray{}.Value()
	if err != nil {
		t.Fatalf("unexpected value error: %v", err)
	}
	if v != "{}" {
		t.Errorf("unexpected empty value: %v", v)
	}
}

func TestStringArrayContains(t *testing.T) {
	a := StringArray{"one", "two"}
	if !a.Contains("two") {
		t.Error("expected Contains to find existing id")
	}
	if a.Contains("three") {
		t.Error("expected Contains to miss absent id")
	}
	if (StringArray{}).Contains("one") {
		t.Error("empty array must contain nothing")
	}
}
