package rational

import "fmt"

// Timecode renders the time as SMPTE timecode. With dropFrame set, the
// NTSC drop-frame numbering is applied for 29.97 (two frame numbers
// skipped each minute, except every tenth minute) and 59.94 (four
// skipped). Other rates ignore the flag and render non-drop. Drop-frame
// timecode uses ';' before the frame field, non-drop uses ':'.
func (t Time) Timecode(dropFrame bool) string {
	frames := t.Frames
	sign := ""
	if frames < 0 {
		sign = "-"
		frames = -frames
	}

	nominal := roundHalfUp(t.RateNum, t.RateDen)
	if nominal <= 0 {
		nominal = 1
	}

	sep := ":"
	if dropFrame {
		if dropPerMinute := dropFrameCount(t.RateNum, t.RateDen); dropPerMinute > 0 {
			frames = dropFrameNumber(frames, nominal, dropPerMinute)
			sep = ";"
		}
	}

	ff := frames % nominal
	totalSeconds := frames / nominal
	ss := totalSeconds % 60
	mm := (totalSeconds / 60) % 60
	hh := totalSeconds / 3600

	return fmt.Sprintf("%s%02d:%02d:%02d%s%02d", sign, hh, mm, ss, sep, ff)
}

// dropFrameCount returns the frames skipped per minute for the rate, or 0
// if the rate has no defined drop-frame numbering.
func dropFrameCount(num, den int64) int64 {
	switch {
	case num == 30000 && den == 1001:
		return 2
	case num == 60000 && den == 1001:
		return 4
	default:
		return 0
	}
}

// dropFrameNumber maps a real frame count to the displayed drop-frame
// number. drop frame numbers are skipped at the start of each minute whose
// index is not divisible by 10.
func dropFrameNumber(frames, nominal, drop int64) int64 {
	framesPerMinute := nominal*60 - drop
	framesPerTenMinutes := framesPerMinute*10 + drop

	tens := frames / framesPerTenMinutes
	rem := frames % framesPerTenMinutes

	skipped := drop * 9 * tens
	if rem > drop {
		skipped += drop * ((rem - drop) / framesPerMinute)
	}
	return frames + skipped
}
