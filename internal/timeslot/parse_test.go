package timeslot

import (
	"testing"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	for semester := 0; semester < 4; semester++ {
		for weekday := 0; weekday < 7; weekday++ {
			for parity := 0; parity < 2; parity++ {
				for _, periods := range []int{0b1, 0b1100, 0b1_1111_1111_1111} {
					f := Encode(semester, weekday, parity, periods)
					s, w, p, b := Decode(f)
					if s != semester || w != weekday || p != parity || b != periods {
						t.Fatalf("roundtrip (%d,%d,%d,%b) -> (%d,%d,%d,%b)",
							semester, weekday, parity, periods, s, w, p, b)
					}
				}
			}
		}
	}
}

func TestParseScheduleSpringWednesday(t *testing.T) {
	flags := ParseSchedule("周三第3,4节", "2025春")
	if len(flags) != 2 {
		t.Fatalf("got %d flags, want 2 (both parities)", len(flags))
	}

	parities := map[int]bool{}
	for _, f := range flags {
		semester, weekday, parity, periods := Decode(f)
		if semester != SemesterSpring {
			t.Errorf("semester = %d, want spring", semester)
		}
		if weekday != 2 {
			t.Errorf("weekday = %d, want 2", weekday)
		}
		if periods != 0b1100 {
			t.Errorf("periods = %b, want 1100", periods)
		}
		parities[parity] = true
	}
	if !parities[ParityOdd] || !parities[ParityEven] {
		t.Errorf("expected one flag per parity, got %v", parities)
	}
}

func TestParseScheduleParityMarker(t *testing.T) {
	flags := ParseSchedule("周一第1,2节{单周}", "2025秋")
	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	semester, weekday, parity, periods := Decode(flags[0])
	if semester != SemesterAutumn || weekday != 0 || parity != ParityOdd || periods != 0b11 {
		t.Fatalf("unexpected flag: (%d,%d,%d,%b)", semester, weekday, parity, periods)
	}
}

func TestParseScheduleMultipleSemesters(t *testing.T) {
	flags := ParseSchedule("周五第6节{双周}", "2025秋冬")
	if len(flags) != 2 {
		t.Fatalf("got %d flags, want 2 (autumn and winter)", len(flags))
	}
	semesters := map[int]bool{}
	for _, f := range flags {
		s, _, parity, _ := Decode(f)
		if parity != ParityEven {
			t.Errorf("parity = %d, want even", parity)
		}
		semesters[s] = true
	}
	if !semesters[SemesterAutumn] || !semesters[SemesterWinter] {
		t.Errorf("semesters = %v, want autumn and winter", semesters)
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	if flags := ParseSchedule("第3,4节", "2025春"); flags != nil {
		t.Errorf("schedule without weekday should yield no flags, got %v", flags)
	}
	if flags := ParseSchedule("周三下午", "2025春"); flags != nil {
		t.Errorf("schedule without periods should yield no flags, got %v", flags)
	}
}

func TestParseScheduleOutOfRangePeriod(t *testing.T) {
	// 14超出1~13，只跳过该数字，不整行作废
	flags := ParseSchedule("周一第1,14节", "2025春")
	if len(flags) != 2 {
		t.Fatalf("got %d flags, want 2", len(flags))
	}
	_, _, _, periods := Decode(flags[0])
	if periods != 0b1 {
		t.Fatalf("periods = %b, want 1", periods)
	}
}

func TestFlagOverlaps(t *testing.T) {
	base := Encode(SemesterSpring, 2, ParityOdd, 0b1100)
	cases := []struct {
		name  string
		other Flag
		want  bool
	}{
		{"same slot", Encode(SemesterSpring, 2, ParityOdd, 0b0100), true},
		{"disjoint periods", Encode(SemesterSpring, 2, ParityOdd, 0b0011), false},
		{"different weekday", Encode(SemesterSpring, 3, ParityOdd, 0b1100), false},
		{"different parity", Encode(SemesterSpring, 2, ParityEven, 0b1100), false},
		{"different semester", Encode(SemesterAutumn, 2, ParityOdd, 0b1100), false},
	}
	for _, tc := range cases {
		if got := base.Overlaps(tc.other); got != tc.want {
			t.Errorf("%s: overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseExam(t *testing.T) {
	slot, err := ParseExam("2025年06月21日(14:00-16:00)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.Date.Year() != 2025 || slot.Date.Month() != 6 || slot.Date.Day() != 21 {
		t.Errorf("unexpected date: %v", slot.Date)
	}
	if slot.String() != "2025年06月21日(14:00-16:00)" {
		t.Errorf("String() = %q", slot.String())
	}

	if _, err := ParseExam("garbage"); err == nil {
		t.Fatal("expected error for malformed exam time")
	}
}

func TestExamSlotOverlaps(t *testing.T) {
	a, _ := ParseExam("2025年06月21日(14:00-16:00)")
	b, _ := ParseExam("2025年06月21日(15:00-17:00)")
	c, _ := ParseExam("2025年06月21日(16:00-18:00)")
	d, _ := ParseExam("2025年06月22日(14:00-16:00)")

	if !a.Overlaps(b) {
		t.Error("overlapping exams on the same date must overlap")
	}
	if a.Overlaps(c) {
		t.Error("back-to-back exams must not overlap")
	}
	if a.Overlaps(d) {
		t.Error("exams on different dates must not overlap")
	}
}
