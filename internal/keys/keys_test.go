package keys

import "testing"

func TestNFTKey(t *testing.T) {
	got := NFTKey(" 0xDAD1276ECD6D27116DA400B33C81CE49D91D5831 ", " 42 ")
	want := "0xdad1276ecd6d27116da400b33c81ce49d91d5831-42"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if NFTKey("", "1") != "" || NFTKey("0xabc", "") != "" {
		t.Fatalf("expected empty key for missing parts")
	}
}

func TestSkillKeyIncludesGrade(t *testing.T) {
	a := SkillKey("0xabc", "7", "S-Rank")
	b := SkillKey("0xabc", "7", "D-Rank")
	if a == b {
		t.Fatalf("expected grade to change the key, both were %q", a)
	}
	if a != "skill:0xabc-7:s-rank" {
		t.Fatalf("unexpected key %q", a)
	}
}
