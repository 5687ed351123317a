package rational

import "testing"

func TestTimecode_NonDrop(t *testing.T) {
	cases := []struct {
		frames   int64
		num, den int64
		want     string
	}{
		{0, 30, 1, "00:00:00:00"},
		{29, 30, 1, "00:00:00:29"},
		{30, 30, 1, "00:00:01:00"},
		{1800, 30, 1, "00:01:00:00"},
		{108000, 30, 1, "01:00:00:00"},
		{25, 25, 1, "00:00:01:00"},
		{24, 24, 1, "00:00:01:00"},
	}
	for _, tc := range cases {
		tm := MustNew(tc.frames, tc.num, tc.den)
		if got := tm.Timecode(false); got != tc.want {
			t.Errorf("Timecode(%d @ %d/%d) = %q, want %q",
				tc.frames, tc.num, tc.den, got, tc.want)
		}
	}
}

func TestTimecode_DropFrame2997(t *testing.T) {
	cases := []struct {
		frames int64
		want   string
	}{
		{0, "00:00:00;00"},
		{1799, "00:00:59;29"},
		// First minute boundary skips ;00 and ;01.
		{1800, "00:01:00;02"},
		// Tenth minute does not drop.
		{17982, "00:10:00;00"},
		// Exactly one hour of real frames.
		{107892, "01:00:00;00"},
	}
	for _, tc := range cases {
		tm := MustNew(tc.frames, 30000, 1001)
		if got := tm.Timecode(true); got != tc.want {
			t.Errorf("Timecode(%d @ 29.97 DF) = %q, want %q", tc.frames, got, tc.want)
		}
	}
}

func TestTimecode_DropFrame5994(t *testing.T) {
	tm := MustNew(3600, 60000, 1001)
	if got := tm.Timecode(true); got != "00:01:00;04" {
		t.Errorf("Timecode(3600 @ 59.94 DF) = %q, want 00:01:00;04", got)
	}
}

func TestTimecode_DropFlagIgnoredForIntegerRates(t *testing.T) {
	tm := MustNew(1800, 30, 1)
	if got := tm.Timecode(true); got != "00:01:00:00" {
		t.Errorf("Timecode(1800 @ 30 drop) = %q, want non-drop rendering", got)
	}
}

func TestTimecode_Negative(t *testing.T) {
	tm := MustNew(-30, 30, 1)
	if got := tm.Timecode(false); got != "-00:00:01:00" {
		t.Errorf("Timecode(-30 @ 30) = %q, want -00:00:01:00", got)
	}
}
