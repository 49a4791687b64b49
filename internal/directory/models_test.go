package directory

import (
	"encoding/json"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  PermissionLevel
	}{
		{"Employee", LevelEmployee},
		{"leader", LevelLeader},
		{" DIRECTOR ", LevelDirector},
		{"1", LevelEmployee},
		{"3", LevelDirector},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}

	for _, bad := range []string{"", "boss", "0", "4", "-1"} {
		if _, err := ParseLevel(bad); err == nil {
			t.Fatalf("ParseLevel(%q) should fail", bad)
		}
	}
}

func TestCanAssign(t *testing.T) {
	if !LevelDirector.CanAssign(LevelDirector) {
		t.Fatal("director must be able to assign director")
	}
	if !LevelLeader.CanAssign(LevelEmployee) || !LevelLeader.CanAssign(LevelLeader) {
		t.Fatal("leader must be able to assign employee and leader")
	}
	if LevelLeader.CanAssign(LevelDirector) {
		t.Fatal("leader must not assign director")
	}
	if LevelEmployee.CanAssign(LevelLeader) || LevelEmployee.CanAssign(LevelDirector) {
		t.Fatal("employee may only assign employee")
	}
	if !LevelEmployee.CanAssign(LevelEmployee) {
		t.Fatal("employee must be able to assign employee")
	}
}

func TestPermissionLevelJSON(t *testing.T) {
	data, err := json.Marshal(LevelLeader)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"Leader"` {
		t.Fatalf("expected \"Leader\", got %s", data)
	}

	var fromName PermissionLevel
	if err := json.Unmarshal([]byte(`"Director"`), &fromName); err != nil || fromName != LevelDirector {
		t.Fatalf("unmarshal from name: %v %v", fromName, err)
	}

	var fromNumber PermissionLevel
	if err := json.Unmarshal([]byte(`2`), &fromNumber); err != nil || fromNumber != LevelLeader {
		t.Fatalf("unmarshal from number: %v %v", fromNumber, err)
	}

	var invalid PermissionLevel
	if err := json.Unmarshal([]byte(`7`), &invalid); err == nil {
		t.Fatal("out-of-range level must fail to unmarshal")
	}
}
