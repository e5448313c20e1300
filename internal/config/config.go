// Package config reads the bootstrap collaborator's tab-delimited
// catalog dumps and the drop-scan tab.config candidate-type file
// (spec.md §6), and serves the per-major-version column orderings
// those dumps need to be parsed correctly.
package config

import (
	"bufio"
	_ "embed"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed versions.yaml
var versionsYAML []byte

// VersionSchema is one major version's catalog column ordering, token
// types as defined in versions.yaml (oid, name, int, smallint, bool,
// char, xid, pass).
type VersionSchema struct {
	Database  []string `yaml:"database"`
	Schema    []string `yaml:"schema"`
	Class     []string `yaml:"class"`
	Attribute []string `yaml:"attribute"`
	Type      []string `yaml:"type"`
}

var allVersions map[int]VersionSchema

func init() {
	if err := yaml.Unmarshal(versionsYAML, &allVersions); err != nil {
		panic(errors.Wrap(err, "config: embedded versions.yaml is malformed"))
	}
}

// ErrUnknownVersion reports a major version this module has no
// column-ordering table for.
var ErrUnknownVersion = errors.New("config: unsupported major version")

// VersionSchemaFor returns the column ordering table for major, one of
// 14 through 18 (spec.md §6).
func VersionSchemaFor(major int) (VersionSchema, error) {
	v, ok := allVersions[major]
	if !ok {
		return VersionSchema{}, errors.Wrapf(ErrUnknownVersion, "major=%d", major)
	}
	return v, nil
}

// DatabaseRow is one line of pg_database.txt.
type DatabaseRow struct {
	OID           uint32
	Name          string
	TablespaceOID uint32
	DBPath        string
}

// ReadDatabases parses pg_database.txt: oid\tname\ttablespace_oid\tdb_path\n
func ReadDatabases(r io.Reader) ([]DatabaseRow, error) {
	var out []DatabaseRow
	err := forEachTabLine(r, func(fields []string) error {
		if len(fields) < 4 {
			return errors.Errorf("pg_database.txt: row has %d fields, want >=4", len(fields))
		}
		oid, err := parseUint32(fields[0])
		if err != nil {
			return err
		}
		tsOID, err := parseUint32(fields[2])
		if err != nil {
			return err
		}
		out = append(out, DatabaseRow{OID: oid, Name: fields[1], TablespaceOID: tsOID, DBPath: fields[3]})
		return nil
	})
	return out, err
}

// SchemaRow is one line of pg_schema.txt.
type SchemaRow struct {
	OID  uint32
	Name string
}

// ReadSchemas parses pg_schema.txt: oid\tname\n
func ReadSchemas(r io.Reader) ([]SchemaRow, error) {
	var out []SchemaRow
	err := forEachTabLine(r, func(fields []string) error {
		if len(fields) < 2 {
			return errors.Errorf("pg_schema.txt: row has %d fields, want >=2", len(fields))
		}
		oid, err := parseUint32(fields[0])
		if err != nil {
			return err
		}
		out = append(out, SchemaRow{OID: oid, Name: fields[1]})
		return nil
	})
	return out, err
}

// ReadClasses parses pg_class.txt into raw tab-separated field rows;
// the caller interprets each row against VersionSchema.Class.
func ReadClasses(r io.Reader) ([][]string, error) {
	return readTabRows(r)
}

// ReadAttributes parses pg_attribute.txt into raw tab-separated field
// rows; the caller interprets each row against VersionSchema.Attribute.
func ReadAttributes(r io.Reader) ([][]string, error) {
	return readTabRows(r)
}

// ReadTypes parses pg_type.txt into raw tab-separated field rows.
func ReadTypes(r io.Reader) ([][]string, error) {
	return readTabRows(r)
}

func readTabRows(r io.Reader) ([][]string, error) {
	var out [][]string
	err := forEachTabLine(r, func(fields []string) error {
		out = append(out, fields)
		return nil
	})
	return out, err
}

func forEachTabLine(r io.Reader, fn func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := fn(strings.Split(line, "\t")); err != nil {
			return err
		}
	}
	return errors.Wrap(sc.Err(), "config: scanning tab-delimited dump")
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "config: bad oid %q", s)
	}
	return uint32(v), nil
}

// CandidateTable is one tab.config line: a table name and its
// candidate type list, used by DropScanEngine when no catalog exists.
type CandidateTable struct {
	Name  string
	Types []string
}

// ParseTabConfig parses tab.config: `name type1,type2,...` one table per
// line (spec.md §6).
func ParseTabConfig(r io.Reader) ([]CandidateTable, error) {
	var out []CandidateTable
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("tab.config: malformed line %q", line)
		}
		types := strings.Split(parts[1], ",")
		for i := range types {
			types[i] = strings.TrimSpace(types[i])
		}
		out = append(out, CandidateTable{Name: parts[0], Types: types})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "config: scanning tab.config")
	}
	return out, nil
}
