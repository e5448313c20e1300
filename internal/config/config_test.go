package config

import (
	"strings"
	"testing"
)

func TestVersionSchemaForAllSupportedVersions(t *testing.T) {
	for major := 14; major <= 18; major++ {
		v, err := VersionSchemaFor(major)
		if err != nil {
			t.Fatalf("version %d: %v", major, err)
		}
		if len(v.Database) == 0 || len(v.Class) == 0 || len(v.Attribute) == 0 {
			t.Fatalf("version %d: empty column table %+v", major, v)
		}
	}
}

func TestVersionSchemaForUnknownVersion(t *testing.T) {
	if _, err := VersionSchemaFor(9); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}

func TestReadDatabases(t *testing.T) {
	r := strings.NewReader("16384\tmydb\t1663\t/base/16384\n")
	rows, err := ReadDatabases(r)
	if err != nil {
		t.Fatalf("ReadDatabases: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "mydb" || rows[0].OID != 16384 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestReadSchemas(t *testing.T) {
	r := strings.NewReader("2200\tpublic\n")
	rows, err := ReadSchemas(r)
	if err != nil {
		t.Fatalf("ReadSchemas: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "public" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseTabConfig(t *testing.T) {
	r := strings.NewReader("orders int4,text,numeric\n# comment\ncustomers int4,varchar\n")
	tables, err := ParseTabConfig(r)
	if err != nil {
		t.Fatalf("ParseTabConfig: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if tables[0].Name != "orders" || len(tables[0].Types) != 3 {
		t.Fatalf("unexpected first table: %+v", tables[0])
	}
	if tables[1].Name != "customers" || tables[1].Types[1] != "varchar" {
		t.Fatalf("unexpected second table: %+v", tables[1])
	}
}

func TestParseTabConfigRejectsMalformedLine(t *testing.T) {
	r := strings.NewReader("orderswithnotypes\n")
	if _, err := ParseTabConfig(r); err == nil {
		t.Fatalf("expected error for line with no type list")
	}
}
