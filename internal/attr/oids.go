package attr

import "bytes"

// Well-known type OIDs, reproduced from the source database's pg_type
// catalog (stable across versions 14-18, per spec.md §6's per-version
// note — these particular builtin OIDs never change).
const (
	OIDBool = 16
	OIDBytea = 17
	OIDName = 19
	OIDInt8 = 20
	OIDInt2 = 21
	OIDInt4 = 23
	OIDText = 25
	OIDOid = 26
	OIDXid = 28
	OIDJSON = 114
	OIDXML  = 142
	OIDFloat4 = 700
	OIDFloat8 = 701
	OIDBpchar = 1042
	OIDVarchar = 1043
	OIDDate = 1082
	OIDTime = 1083
	OIDTimestamp = 1114
	OIDTimestampTZ = 1184
	OIDInterval = 1186
	OIDTimeTZ = 1266
	OIDBit = 1560
	OIDVarbit = 1562
	OIDNumeric = 1700
	OIDUUID = 2950

	// One-dimensional array OIDs for the types above that commonly
	// appear arrayed in practice.
	OIDInt4Array  = 1007
	OIDInt8Array  = 1016
	OIDInt2Array  = 1005
	OIDTextArray  = 1009
	OIDVarcharArray = 1015
	OIDBoolArray  = 1000
	OIDFloat8Array = 1022
	OIDUUIDArray  = 2951
)

var arrayElem = map[uint32]uint32{
	OIDInt4Array:    OIDInt4,
	OIDInt8Array:    OIDInt8,
	OIDInt2Array:    OIDInt2,
	OIDTextArray:    OIDText,
	OIDVarcharArray: OIDVarchar,
	OIDBoolArray:    OIDBool,
	OIDFloat8Array:  OIDFloat8,
	OIDUUIDArray:    OIDUUID,
}

// decodeFixedFamily dispatches fixed-width (typlen > 0) attributes.
func decodeFixedFamily(oid uint32, raw []byte, typmod int32) (string, error) {
	switch oid {
	case OIDBool:
		return decodeBool(raw)
	case OIDInt2:
		return decodeInt(raw, 2, true)
	case OIDInt4:
		return decodeInt(raw, 4, true)
	case OIDInt8:
		return decodeInt(raw, 8, true)
	case OIDOid, OIDXid:
		return decodeInt(raw, 4, false)
	case OIDFloat4:
		return decodeFloat(raw, 4)
	case OIDFloat8:
		return decodeFloat(raw, 8)
	case OIDDate:
		return decodeDate(raw)
	case OIDTime, OIDTimeTZ:
		return decodeTime(raw, oid == OIDTimeTZ)
	case OIDTimestamp, OIDTimestampTZ:
		return decodeTimestamp(raw, oid == OIDTimestampTZ)
	case OIDInterval:
		return decodeInterval(raw)
	case OIDUUID:
		return decodeUUID(raw)
	case OIDName:
		return string(bytes.TrimRight(raw, "\x00")), nil
	default:
		return decodeInt(raw, len(raw), true)
	}
}

// decodeVarlenaFamily dispatches resolved (typlen = -1) payloads.
func decodeVarlenaFamily(oid uint32, payload []byte, typmod int32) (string, error) {
	if elemOID, ok := arrayElem[oid]; ok {
		return decodeArray(payload, elemOID)
	}
	switch oid {
	case OIDText, OIDJSON, OIDXML, OIDVarchar:
		return string(payload), nil
	case OIDBpchar:
		return decodeBpchar(payload), nil
	case OIDBytea:
		return decodeBytea(payload), nil
	case OIDNumeric:
		return decodeNumeric(payload)
	case OIDBit, OIDVarbit:
		return decodeBitstring(payload)
	default:
		return string(payload), nil
	}
}
