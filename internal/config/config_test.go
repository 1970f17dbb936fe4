package config

import "testing"

func TestFromFlagsAllExpandsEveryFlag(t *testing.T) {
	opts, err := FromFlags([]string{"all"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if !(opts.GlobalTDCE && opts.Orphan && opts.LocalTDCE && opts.LVN && opts.SoloLVN && opts.ToSSA && opts.FromSSA) {
		t.Errorf("all should set every flag, got %+v", opts)
	}
}

func TestFromFlagsAccumulates(t *testing.T) {
	opts, err := FromFlags([]string{"g_tdce", "to_ssa"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if !opts.GlobalTDCE || !opts.ToSSA {
		t.Errorf("expected GlobalTDCE and ToSSA set, got %+v", opts)
	}
	if opts.LVN || opts.Orphan || opts.LocalTDCE || opts.SoloLVN || opts.FromSSA {
		t.Errorf("unrequested flags should stay false, got %+v", opts)
	}
}

func TestFromFlagsRejectsUnknownValue(t *testing.T) {
	if _, err := FromFlags([]string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unrecognized -o value")
	}
}

func TestNeedsCFG(t *testing.T) {
	cases := []struct {
		opts Options
		want bool
	}{
		{Options{GlobalTDCE: true}, false},
		{Options{Orphan: true}, true},
		{Options{ToSSA: true}, true},
		{Options{}, false},
	}
	for _, c := range cases {
		if got := c.opts.NeedsCFG(); got != c.want {
			t.Errorf("NeedsCFG(%+v) = %v, want %v", c.opts, got, c.want)
		}
	}
}

func TestParseAnalysis(t *testing.T) {
	if a, err := ParseAnalysis("live"); err != nil || a != LiveVariables {
		t.Errorf("ParseAnalysis(live) = %v, %v", a, err)
	}
	if a, err := ParseAnalysis("reaching_defns"); err != nil || a != ReachingDefinitions {
		t.Errorf("ParseAnalysis(reaching_defns) = %v, %v", a, err)
	}
	if _, err := ParseAnalysis("nope"); err == nil {
		t.Error("expected an error for an unknown analysis name")
	}
}
