package attr

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// epoch is the source database's internal zero point for date/time
// storage: 2000-01-01, not the Unix epoch.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func decodeDate(raw []byte) (string, error) {
	if len(raw) < 4 {
		return "", errors.Wrap(ErrBadVarlena, "date attribute truncated")
	}
	days := int32(binary.LittleEndian.Uint32(raw))
	t := epoch.AddDate(0, 0, int(days))
	return t.Format("2006-01-02"), nil
}

func decodeTime(raw []byte, withZone bool) (string, error) {
	if len(raw) < 8 {
		return "", errors.Wrap(ErrBadVarlena, "time attribute truncated")
	}
	micros := int64(binary.LittleEndian.Uint64(raw))
	d := time.Duration(micros) * time.Microsecond
	t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d)
	out := t.Format("15:04:05.999999")
	if withZone {
		if len(raw) < 12 {
			return "", errors.Wrap(ErrBadVarlena, "timetz attribute truncated")
		}
		zoneSecs := int32(binary.LittleEndian.Uint32(raw[8:12]))
		out += formatZoneOffset(zoneSecs)
	}
	return out, nil
}

func decodeTimestamp(raw []byte, withZone bool) (string, error) {
	if len(raw) < 8 {
		return "", errors.Wrap(ErrBadVarlena, "timestamp attribute truncated")
	}
	micros := int64(binary.LittleEndian.Uint64(raw))
	t := epoch.Add(time.Duration(micros) * time.Microsecond)
	layout := "2006-01-02 15:04:05.999999"
	if withZone {
		return t.Format(layout) + "+00", nil
	}
	return t.Format(layout), nil
}

func decodeInterval(raw []byte) (string, error) {
	if len(raw) < 16 {
		return "", errors.Wrap(ErrBadVarlena, "interval attribute truncated")
	}
	micros := int64(binary.LittleEndian.Uint64(raw[0:8]))
	days := int32(binary.LittleEndian.Uint32(raw[8:12]))
	months := int32(binary.LittleEndian.Uint32(raw[12:16]))

	years, remMonths := months/12, months%12
	d := time.Duration(micros) * time.Microsecond
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	s := float64((d%time.Minute)/time.Microsecond) / 1e6

	out := ""
	if years != 0 {
		out += fmt.Sprintf("%d years ", years)
	}
	if remMonths != 0 {
		out += fmt.Sprintf("%d mons ", remMonths)
	}
	if days != 0 {
		out += fmt.Sprintf("%d days ", days)
	}
	out += fmt.Sprintf("%02d:%02d:%09.6f", h, m, s)
	return out, nil
}

func formatZoneOffset(secondsWest int32) string {
	secondsEast := -secondsWest
	sign := "+"
	if secondsEast < 0 {
		sign = "-"
		secondsEast = -secondsEast
	}
	h := secondsEast / 3600
	m := (secondsEast % 3600) / 60
	if m == 0 {
		return fmt.Sprintf("%s%02d", sign, h)
	}
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}
