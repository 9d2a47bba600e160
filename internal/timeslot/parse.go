package timeslot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	periodRegex  = regexp.MustCompile(`第([\d,]+)节`)
	weekdayRegex = regexp.MustCompile(`周(.)`)
	examRegex    = regexp.MustCompile(`^(\d{4})年(\d{2})月(\d{2})日\((\d{2}:\d{2})-(\d{2}:\d{2})\)$`)
)

var weekdayMap = map[string]int{
	"一": 0, "二": 1, "三": 2, "四": 3,
	"五": 4, "六": 5, "日": 6,
}

// ParseSchedule 解析一条上课时间文本（如 "周三第3,4节{单周}"），结合教学班的学期串
// （可能含多个春/夏/秋/冬）展开成若干时段标志。未标单双周时两种都生成；
// 解析不出周几时这条视为无效，返回空。
func ParseSchedule(schedule, semesters string) []Flag {
	periodMatch := periodRegex.FindStringSubmatch(schedule)
	if periodMatch == nil {
		return nil
	}

	periods := 0
	for _, p := range strings.Split(periodMatch[1], ",") {
		if n, err := strconv.Atoi(p); err == nil && n >= 1 && n <= 13 {
			periods |= 1 << (n - 1)
		}
	}

	var parities []int
	odd := strings.Contains(schedule, "{单周}")
	even := strings.Contains(schedule, "{双周}")
	switch {
	case !odd && !even:
		parities = []int{ParityOdd, ParityEven}
	case odd && even:
		parities = []int{ParityOdd, ParityEven}
	case odd:
		parities = []int{ParityOdd}
	default:
		parities = []int{ParityEven}
	}

	weekdayMatch := weekdayRegex.FindStringSubmatch(schedule)
	if weekdayMatch == nil {
		return nil
	}
	weekday, ok := weekdayMap[weekdayMatch[1]]
	if !ok {
		return nil
	}

	var semesterTags []int
	for tag, code := range map[string]int{
		"春": SemesterSpring, "夏": SemesterSummer,
		"秋": SemesterAutumn, "冬": SemesterWinter,
	} {
		if strings.Contains(semesters, tag) {
			semesterTags = append(semesterTags, code)
		}
	}
	// map遍历无序，按学期编号排稳
	for i := 0; i < len(semesterTags); i++ {
		for j := i + 1; j < len(semesterTags); j++ {
			if semesterTags[j] < semesterTags[i] {
				semesterTags[i], semesterTags[j] = semesterTags[j], semesterTags[i]
			}
		}
	}

	var flags []Flag
	for _, semester := range semesterTags {
		for _, parity := range parities {
			flags = append(flags, Encode(semester, weekday, parity, periods))
		}
	}
	return flags
}

// ExamSlot 表示一场考试的日期和起止时间。
type ExamSlot struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

// ParseExam 解析形如 "2025年06月21日(14:00-16:00)" 的考试时间。
func ParseExam(s string) (ExamSlot, error) {
	m := examRegex.FindStringSubmatch(s)
	if m == nil {
		return ExamSlot{}, fmt.Errorf("invalid exam time: %q", s)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)

	start, err := time.Parse("15:04", m[4])
	if err != nil {
		return ExamSlot{}, fmt.Errorf("invalid exam start time: %q", m[4])
	}
	end, err := time.Parse("15:04", m[5])
	if err != nil {
		return ExamSlot{}, fmt.Errorf("invalid exam end time: %q", m[5])
	}

	return ExamSlot{Date: date, Start: start, End: end}, nil
}

func (e ExamSlot) String() string {
	return fmt.Sprintf("%s(%s-%s)",
		e.Date.Format("2006年01月02日"), e.Start.Format("15:04"), e.End.Format("15:04"))
}

// Overlaps 同一天且时间段相交。
func (e ExamSlot) Overlaps(other ExamSlot) bool {
	return e.Date.Equal(other.Date) && e.Start.Before(other.End) && other.Start.Before(e.End)
}
