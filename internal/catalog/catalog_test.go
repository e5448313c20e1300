package catalog

import "testing"

func TestBuildCandidateResolvesColumnsInOrder(t *testing.T) {
	classRows := [][]string{
		{"16401", "accounts", "2200", "0", "0", "0", "0", "0", "0", "0", "false", "0", "0", "0", "false", "false", "r", "p", "0", "pass"},
	}
	attrRows := [][]string{
		{"16401", "id", "23", "0", "0", "0", "0", "0", "0", "false", "c", "c", "pass"},
		{"16401", "........pg.dropped.2........", "25", "0", "0", "0", "0", "0", "0", "false", "c", "c", "pass"},
		{"16401", "balance", "701", "0", "0", "0", "0", "0", "0", "false", "c", "c", "pass"},
	}
	typeRows := [][]string{
		{"23", "int4"},
		{"25", "text"},
		{"701", "float8"},
	}

	specs, err := BuildCandidate(14, "accounts", classRows, attrRows, typeRows)
	if err != nil {
		t.Fatalf("BuildCandidate: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 attrs, got %d", len(specs))
	}
	if specs[0].TypeName != "int4" || specs[0].Dropped {
		t.Fatalf("unexpected spec[0]: %+v", specs[0])
	}
	if specs[1].TypeName != "text" || !specs[1].Dropped {
		t.Fatalf("expected spec[1] to be a dropped text column: %+v", specs[1])
	}
	if specs[2].TypeName != "float8" || specs[2].Dropped {
		t.Fatalf("unexpected spec[2]: %+v", specs[2])
	}
}

func TestBuildCandidateUnknownTable(t *testing.T) {
	_, err := BuildCandidate(14, "missing", nil, nil, nil)
	if err == nil {
		t.Fatalf("expected an error for an unresolvable table name")
	}
}

func TestBuildCandidateUnknownMajorVersion(t *testing.T) {
	_, err := BuildCandidate(99, "t", nil, nil, nil)
	if err == nil {
		t.Fatalf("expected an error for an unsupported major version")
	}
}

func TestBuildDescriptorJoinsThroughToTable(t *testing.T) {
	classRows := [][]string{{"1", "t", "2200"}}
	attrRows := [][]string{{"1", "a", "23", "0", "0", "0", "0", "0", "0", "false", "c", "c", "pass"}}
	typeRows := [][]string{{"23", "int4"}}

	tbl, err := BuildDescriptor(14, "t", classRows, attrRows, typeRows)
	if err != nil {
		t.Fatalf("BuildDescriptor: %v", err)
	}
	if len(tbl.Attrs) != 1 || tbl.Attrs[0].Name != "a" {
		t.Fatalf("unexpected descriptor: %+v", tbl)
	}
}
