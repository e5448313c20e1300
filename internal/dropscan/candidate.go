package dropscan

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/attr"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/config"
	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/descriptor"
)

// typeInfo is the subset of pg_type a candidate type name must supply to
// build a descriptor.Attr: storage width, alignment, and the OID
// AttrDecoder dispatches on.
type typeInfo struct {
	oid      uint32
	typLen   int16
	typAlign descriptor.Align
}

// namedTypes maps the type-name tokens tab.config carries (spec.md §6) to
// their catalog shape. Only the types AttrDecoder already knows how to
// render are listed; an unrecognised token is a configuration error, not
// a silent pass-through.
var namedTypes = map[string]typeInfo{
	"bool":      {attr.OIDBool, 1, descriptor.AlignChar},
	"int2":      {attr.OIDInt2, 2, descriptor.AlignShort},
	"smallint":  {attr.OIDInt2, 2, descriptor.AlignShort},
	"int4":      {attr.OIDInt4, 4, descriptor.AlignInt},
	"int":       {attr.OIDInt4, 4, descriptor.AlignInt},
	"integer":   {attr.OIDInt4, 4, descriptor.AlignInt},
	"int8":      {attr.OIDInt8, 8, descriptor.AlignDouble},
	"bigint":    {attr.OIDInt8, 8, descriptor.AlignDouble},
	"oid":       {attr.OIDOid, 4, descriptor.AlignInt},
	"xid":       {attr.OIDXid, 4, descriptor.AlignInt},
	"float4":    {attr.OIDFloat4, 4, descriptor.AlignInt},
	"real":      {attr.OIDFloat4, 4, descriptor.AlignInt},
	"float8":    {attr.OIDFloat8, 8, descriptor.AlignDouble},
	"double":    {attr.OIDFloat8, 8, descriptor.AlignDouble},
	"date":      {attr.OIDDate, 4, descriptor.AlignInt},
	"time":      {attr.OIDTime, 8, descriptor.AlignDouble},
	"timetz":    {attr.OIDTimeTZ, 12, descriptor.AlignDouble},
	"timestamp": {attr.OIDTimestamp, 8, descriptor.AlignDouble},
	"timestamptz": {attr.OIDTimestampTZ, 8, descriptor.AlignDouble},
	"interval":  {attr.OIDInterval, 16, descriptor.AlignDouble},
	"uuid":      {attr.OIDUUID, 16, descriptor.AlignChar},
	"name":      {attr.OIDName, 64, descriptor.AlignChar},

	"text":    {attr.OIDText, -1, descriptor.AlignInt},
	"varchar": {attr.OIDVarchar, -1, descriptor.AlignInt},
	"bpchar":  {attr.OIDBpchar, -1, descriptor.AlignInt},
	"char":    {attr.OIDBpchar, -1, descriptor.AlignInt},
	"bytea":   {attr.OIDBytea, -1, descriptor.AlignInt},
	"numeric": {attr.OIDNumeric, -1, descriptor.AlignInt},
	"decimal": {attr.OIDNumeric, -1, descriptor.AlignInt},
	"json":    {attr.OIDJSON, -1, descriptor.AlignInt},
	"xml":     {attr.OIDXML, -1, descriptor.AlignInt},
	"bit":     {attr.OIDBit, -1, descriptor.AlignInt},
	"varbit":  {attr.OIDVarbit, -1, descriptor.AlignInt},

	"int4[]":   {attr.OIDInt4Array, -1, descriptor.AlignInt},
	"int8[]":   {attr.OIDInt8Array, -1, descriptor.AlignDouble},
	"int2[]":   {attr.OIDInt2Array, -1, descriptor.AlignInt},
	"text[]":   {attr.OIDTextArray, -1, descriptor.AlignInt},
	"varchar[]": {attr.OIDVarcharArray, -1, descriptor.AlignInt},
	"bool[]":   {attr.OIDBoolArray, -1, descriptor.AlignInt},
	"float8[]": {attr.OIDFloat8Array, -1, descriptor.AlignDouble},
	"uuid[]":   {attr.OIDUUIDArray, -1, descriptor.AlignInt},
}

// ErrUnknownType reports a tab.config type token this tool cannot
// resolve to a known catalog shape.
var ErrUnknownType = errors.New("dropscan: unrecognised candidate type")

// BuildDescriptor turns a tab.config candidate (name + type token list,
// no catalog oids) into the descriptor.Table TupleReader walks, per
// spec.md §4.6's "candidate TabDescriptor" input.
func BuildDescriptor(c config.CandidateTable) (*descriptor.Table, error) {
	specs := make([]AttrSpec, len(c.Types))
	for i, tok := range c.Types {
		specs[i] = AttrSpec{Name: tok, TypeName: tok}
	}
	return BuildDescriptorFromSpecs(c.Name, specs)
}

// AttrSpec is a column's type name plus whatever the catalog already
// knows about it (currently: whether it carries attisdropped). A
// catalog-guided "unload" run resolves these from pg_attribute/pg_type;
// a catalog-less drop-scan run builds them straight from tab.config
// (see BuildDescriptor).
type AttrSpec struct {
	Name     string
	TypeName string
	Dropped  bool
}

// BuildDescriptorFromSpecs is BuildDescriptor generalised to carry the
// attisdropped flag a catalog-guided build already knows, so the
// storage slot is still walked (it occupies space in the tuple) but the
// value is discarded rather than rendered.
func BuildDescriptorFromSpecs(tableName string, specs []AttrSpec) (*descriptor.Table, error) {
	tbl := &descriptor.Table{Name: tableName}
	for i, s := range specs {
		tok := strings.ToLower(strings.TrimSpace(s.TypeName))
		info, ok := namedTypes[tok]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownType, "table %s column %d: %q", tableName, i, tok)
		}
		tbl.Attrs = append(tbl.Attrs, descriptor.Attr{
			Name:     s.Name,
			TypeOID:  info.oid,
			TypLen:   info.typLen,
			TypAlign: info.typAlign,
			Dropped:  s.Dropped,
		})
	}
	return tbl, nil
}
