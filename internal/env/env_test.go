package env

import (
	"reflect"
	"strings"
	"testing"
)

func find(kvs []string, key string) (string, bool) {
	for _, kv := range kvs {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			return v, true
		}
	}
	return "", false
}

func TestMerge_Precedence(t *testing.T) {
	e := New()
	e.env = Var{"BASE": "os", "SHARED": "os"}
	e.Set("SHARED", "global")
	e.Set("GLOBAL_ONLY", "g")

	got := e.Merge(map[string]string{"SHARED": "sidecar", "EXTRA": "x"})

	if v, _ := find(got, "BASE"); v != "os" {
		t.Errorf("BASE = %q", v)
	}
	if v, _ := find(got, "SHARED"); v != "sidecar" {
		t.Errorf("per-sidecar must win: SHARED = %q", v)
	}
	if v, _ := find(got, "GLOBAL_ONLY"); v != "g" {
		t.Errorf("GLOBAL_ONLY = %q", v)
	}
	if v, _ := find(got, "EXTRA"); v != "x" {
		t.Errorf("EXTRA = %q", v)
	}
}

func TestMerge_Expansion(t *testing.T) {
	e := New()
	e.env = Var{"HOME": "/home/qa"}
	got := e.Merge(map[string]string{"DATA": "${HOME}/data", "MISSING": "${NOPE}"})
	if v, _ := find(got, "DATA"); v != "/home/qa/data" {
		t.Errorf("DATA = %q", v)
	}
	if v, _ := find(got, "MISSING"); v != "" {
		t.Errorf("unknown var must expand empty, got %q", v)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	e := New()
	e.env = Var{"A": "1", "B": "2", "C": "3"}
	over := map[string]string{"D": "4"}
	if !reflect.DeepEqual(e.Merge(over), e.Merge(over)) {
		t.Fatal("Merge output not deterministic")
	}
}

func TestUnset(t *testing.T) {
	e := New()
	e.env = Var{}
	e.Set("K", "v")
	e.Unset("K")
	if _, ok := find(e.Merge(nil), "K"); ok {
		t.Fatal("K should be gone after Unset")
	}
}

func TestMerge_SkipsEmptyKeys(t *testing.T) {
	e := New()
	e.env = Var{}
	got := e.Merge(map[string]string{"": "bad", "OK": "1"})
	if len(got) != 1 || got[0] != "OK=1" {
		t.Fatalf("got %v", got)
	}
}
