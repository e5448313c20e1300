// Package catalog turns the bootstrap collaborator's raw pg_class/
// pg_attribute/pg_type dump rows into the []dropscan.AttrSpec shape
// dropscan.BuildDescriptorFromSpecs already knows how to turn into a
// descriptor.Table, so a catalog-guided "unload" run and a catalog-less
// "drop-scan" run share the same descriptor construction path.
//
// Grounded on original_source/basic.h's DB_ATTR/SCH_ATTR/CLASS_ATTR/
// ATTR_ATTR/TYPE_ATTR macros: every one of those tables begins with the
// same invariant prefix across every major version this module
// supports (class/attribute rows: oid, name[, oid]; type rows: oid,
// name) — see internal/config/versions.yaml. This package relies only
// on that invariant prefix, never on the version-specific trailing
// fields, so it needs no per-version branching.
package catalog

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/config"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/descriptor"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/dropscan"
)

// ErrTableNotFound reports that tableName has no matching pg_class row.
var ErrTableNotFound = errors.New("catalog: table not found")

// ErrUnknownTypeOID reports an atttypid with no matching pg_type row.
var ErrUnknownTypeOID = errors.New("catalog: attribute type oid not in pg_type dump")

// droppedPrefix is Postgres's own convention for a dropped column's
// surviving attname (see pg_attribute documentation): the storage slot
// must still be walked, but the name is replaced with this marker.
const droppedPrefix = "........pg.dropped."

// BuildCandidate resolves tableName against classRows (pg_class.txt)
// and attrRows (pg_attribute.txt), joins each attribute's atttypid
// against typeRows (pg_type.txt) for its type name, and returns the
// []dropscan.AttrSpec that dropscan.BuildDescriptorFromSpecs consumes.
// Rows are assumed to appear in attnum order, matching the bootstrap
// collaborator's scan order — DESIGN.md's internal/catalog entry records this as an
// explicit Open Question decision, since no major version's ATTR_ATTR
// prefix carries attnum at a fixed position.
//
// A dropped column keeps its original atttypid in pg_attribute (only
// its name is replaced) so its storage width is still resolvable; only
// the AttrSpec.Dropped flag changes, matching real attisdropped
// semantics.
//
// major selects the internal/config/versions.yaml schema for attrRows:
// every row must carry at least as many fields as that major version's
// attribute column table, a cheap sanity check against feeding a dump
// from the wrong server version, even though the invariant prefix this
// function actually reads never moves.
func BuildCandidate(major int, tableName string, classRows, attrRows, typeRows [][]string) ([]dropscan.AttrSpec, error) {
	schema, err := config.VersionSchemaFor(major)
	if err != nil {
		return nil, err
	}
	typeNames, err := typeNameIndex(typeRows)
	if err != nil {
		return nil, err
	}

	relOID := ""
	for _, row := range classRows {
		if len(row) < 2 {
			continue
		}
		if row[1] == tableName {
			relOID = row[0]
			break
		}
	}
	if relOID == "" {
		return nil, errors.Wrapf(ErrTableNotFound, "table %q", tableName)
	}

	var specs []dropscan.AttrSpec
	for _, row := range attrRows {
		if len(row) < len(schema.Attribute) {
			return nil, errors.Errorf("catalog: pg_attribute row has %d fields, want >=%d for major version %d", len(row), len(schema.Attribute), major)
		}
		if row[0] != relOID {
			continue
		}
		attname := row[1]
		typName, ok := typeNames[row[2]]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownTypeOID, "table %q column %q typid=%s", tableName, attname, row[2])
		}
		dropped := strings.HasPrefix(attname, droppedPrefix)
		specs = append(specs, dropscan.AttrSpec{Name: attname, TypeName: typName, Dropped: dropped})
	}
	return specs, nil
}

// BuildDescriptor is BuildCandidate followed by
// dropscan.BuildDescriptorFromSpecs, for callers that just want the
// final descriptor.Table (cmd/pdu's unload path).
func BuildDescriptor(major int, tableName string, classRows, attrRows, typeRows [][]string) (*descriptor.Table, error) {
	specs, err := BuildCandidate(major, tableName, classRows, attrRows, typeRows)
	if err != nil {
		return nil, err
	}
	return dropscan.BuildDescriptorFromSpecs(tableName, specs)
}

func typeNameIndex(typeRows [][]string) (map[string]string, error) {
	out := make(map[string]string, len(typeRows))
	for _, row := range typeRows {
		if len(row) < 2 {
			return nil, errors.New("catalog: pg_type row missing oid/name columns")
		}
		out[row[0]] = strings.ToLower(row[1])
	}
	return out, nil
}
