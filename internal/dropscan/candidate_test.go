package dropscan

import "testing"

func TestBuildDescriptorFromSpecsMarksDropped(t *testing.T) {
	tbl, err := BuildDescriptorFromSpecs("t", []AttrSpec{
		{Name: "a", TypeName: "int4"},
		{Name: "........pg.dropped.2........", TypeName: "text", Dropped: true},
	})
	if err != nil {
		t.Fatalf("BuildDescriptorFromSpecs: %v", err)
	}
	if tbl.Attrs[0].Dropped {
		t.Fatalf("expected first attribute to not be dropped")
	}
	if !tbl.Attrs[1].Dropped {
		t.Fatalf("expected second attribute to be marked dropped")
	}
}

func TestBuildDescriptorFromSpecsUnknownType(t *testing.T) {
	_, err := BuildDescriptorFromSpecs("t", []AttrSpec{{Name: "a", TypeName: "frobnicate"}})
	if err == nil {
		t.Fatalf("expected an error for an unrecognised type name")
	}
}
