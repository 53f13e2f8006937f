package validate

import "unicode"

// Heuristic thresholds.
const (
	// MaxRepeatRun is the longest allowed run of one repeated character.
	MaxRepeatRun = 15

	// UppercaseMinLength is the length below which the uppercase ratio is
	// not evaluated; short shouts like "OK" or "LGTM" are fine.
	UppercaseMinLength = 20
	MaxUppercaseRatio  = 0.7

	// EmojiMinCount is the emoji count below which density is not evaluated.
	EmojiMinCount   = 10
	MaxEmojiDensity = 0.3
)

// suspicious flags text that looks like spam. The first heuristic that fires
// determines the reason.
func suspicious(subject, text string) Result {
	var (
		total, upper, emoji int
		run, longestRun     int
		prev                rune = -1
	)

	for _, r := range text {
		total++

		if isBlockDrawing(r) {
			return reject(KindPolicy, "%s contains block or box-drawing characters commonly used in ASCII-art spam.", subject)
		}

		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > longestRun {
			longestRun = run
		}

		if unicode.IsUpper(r) {
			upper++
		}
		if isEmoji(r) {
			emoji++
		}
	}

	if longestRun > MaxRepeatRun {
		return reject(KindPolicy, "%s contains excessive repeated characters (more than %d in a row).", subject, MaxRepeatRun)
	}
	if total >= UppercaseMinLength && float64(upper)/float64(total) > MaxUppercaseRatio {
		return reject(KindPolicy, "%s contains excessive uppercase letters.", subject)
	}
	if emoji >= EmojiMinCount && float64(emoji)/float64(total) > MaxEmojiDensity {
		return reject(KindPolicy, "%s contains too many emoji.", subject)
	}
	return OK
}

// isBlockDrawing covers box drawing, block elements and braille patterns.
func isBlockDrawing(r rune) bool {
	return (r >= 0x2500 && r <= 0x259F) || (r >= 0x2800 && r <= 0x28FF)
}

// isEmoji covers the pictographic planes and the misc symbols and dingbats
// blocks. Joiners and variation selectors are not counted.
func isEmoji(r rune) bool {
	return (r >= 0x1F000 && r <= 0x1FAFF) || (r >= 0x2600 && r <= 0x27BF)
}
