package sink

import (
	"github.com/rivo/uniseg"
)

// consecutiveZeroLimit is the run length of ASCII '0' bytes that marks a
// decoded value as corrupted padding rather than real data. The source
// tool's INVALID_CONSCTV_ZERO constant is 20 with a strict "greater
// than" check, so a run is only rejected at 21 bytes; this package
// follows the spec's explicit "≥ 20" wording instead (see DESIGN.md),
// so a run of exactly 20 already counts as gibberish.
const consecutiveZeroLimit = 20

// HasGibberish reports whether s looks like garbled/corrupted TOAST
// output: either a long run of ASCII '0' bytes, or a rune outside the
// whitelist of scripts real row data is expected to use.
//
// Grounded on original_source/tools.c's is_valid_string (consecutive-
// zero scan) and is_normal_char/has_gibberish (Unicode range whitelist).
// Iterates by grapheme cluster via rivo/uniseg rather than tools.c's raw
// UTF-8 byte decode, then checks every rune of each cluster (combining
// marks included) against the whitelist.
func HasGibberish(s string) bool {
	consecutiveZero := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		cluster, remainder, _, newState := uniseg.StepString(rest, state)
		state = newState
		rest = remainder

		for _, r := range cluster {
			if r == '0' {
				consecutiveZero++
			} else {
				consecutiveZero = 0
			}
			if consecutiveZero >= consecutiveZeroLimit {
				return true
			}
			if !isNormalChar(r) {
				return true
			}
		}
	}
	return false
}

// isNormalChar reports whether r falls in one of the Unicode ranges the
// source tool treats as ordinary text, transcribed verbatim from
// tools.c's is_normal_char.
func isNormalChar(r rune) bool {
	switch {
	case r <= 0x7F: // ASCII
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK punctuation
		return true
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK extension A
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul syllables
		return true
	case r >= 0xF900 && r <= 0xFAFF: // CJK compatibility ideographs
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // fullwidth/halfwidth forms
		return true
	case r >= 0x0E00 && r <= 0x0E7F: // Thai
		return true
	case r >= 0x0080 && r <= 0x00FF: // Latin-1 supplement
		return true
	case r >= 0x0100 && r <= 0x024F: // Latin extended A/B
		return true
	case r >= 0x0370 && r <= 0x03FF: // Greek and Coptic
		return true
	case r >= 0x0400 && r <= 0x04FF: // Cyrillic
		return true
	case r >= 0x0590 && r <= 0x05FF: // Hebrew
		return true
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case r >= 0x0900 && r <= 0x097F: // Devanagari
		return true
	case r >= 0x2000 && r <= 0x206F: // general punctuation
		return true
	case r >= 0x2100 && r <= 0x214F: // letterlike symbols
		return true
	default:
		return false
	}
}
