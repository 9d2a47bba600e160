package courses

import (
	"math"

	"zju-course-assistant/internal/timeslot"
)

// Course 一门课程，下挂若干教学班。
type Course struct {
	ID           string  `json:"id"`   // 课程代码
	Code         string  `json:"code"` // 选课课号
	Name         string  `json:"name"`
	Credits      float64 `json:"credits"`
	Category     Category `json:"category"`
	WeekTime     string  `json:"week_time"` // 周学时文本
	Department   string  `json:"department"`
	Property     string  `json:"property"`
	Introduction string  `json:"introduction"`
	Selected     bool    `json:"selected"`

	Sections []*Section `json:"sections,omitempty"`
}

// Section 一个教学班（ID为选课课号）。
type Section struct {
	ID          string   `json:"id"`
	Course      *Course  `json:"-"`
	Instructors []string `json:"instructors"`
	Schedules   []string `json:"schedules"` // 上课时间文本，逐行
	Locations   []string `json:"locations"` // 上课地点文本，逐行，可能比Schedules少
	Semesters   string   `json:"semesters"` // 学期串，可能含多个春/夏/秋/冬

	ExamTime *timeslot.ExamSlot `json:"exam_time,omitempty"`

	TeachingForm    string `json:"teaching_form"`
	TeachingMethod  string `json:"teaching_method"`
	IsInternational bool   `json:"is_international"`

	AvailableSeats    int `json:"available_seats"`
	Capacity          int `json:"capacity"`
	MajorWaitingCount int `json:"major_waiting_count"`
	TotalWaitingCount int `json:"total_waiting_count"`

	// InstructorRatings 由教师库补充的口碑评分，教师名 -> 评分。
	InstructorRatings map[string]float64 `json:"instructor_ratings,omitempty"`
}

// Flags 把所有上课时间文本展开成时段标志，按行序去重后返回。
// 解析不了的行跳过，不影响其余行。
func (s *Section) Flags() []timeslot.Flag {
	var flags []timeslot.Flag
	seen := make(map[timeslot.Flag]struct{})
	for _, schedule := range s.Schedules {
		for _, f := range timeslot.ParseSchedule(schedule, s.Semesters) {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			flags = append(flags, f)
		}
	}
	return flags
}

// Conflicts 两个教学班是否冲突：考试同天且时间相交，或存在学期、周几、
// 单双周一致且节次相交的时段对。
func (s *Section) Conflicts(other *Section) bool {
	if s.ExamTime != nil && other.ExamTime != nil && s.ExamTime.Overlaps(*other.ExamTime) {
		return true
	}
	for _, fl := range s.Flags() {
		for _, fr := range other.Flags() {
			if fl.Overlaps(fr) {
				return true
			}
		}
	}
	return false
}

// LocationFor 给定时段对应的上课地点。地点行数可以少于时段数
// （一行地点覆盖多行时间），按时段序号取模。
func (s *Section) LocationFor(flag timeslot.Flag) string {
	if len(s.Locations) == 0 {
		return ""
	}
	for i, f := range s.Flags() {
		if f == flag {
			return s.Locations[i%len(s.Locations)]
		}
	}
	return ""
}

// SelectionProbability 选上的把握：没有候补压力时为1.00，否则为
// 余量/候补人数保留两位，没余量时为0.00。
func (s *Section) SelectionProbability() float64 {
	if s.AvailableSeats <= 0 {
		return 0.00
	}
	if s.TotalWaitingCount > 0 && s.TotalWaitingCount > s.AvailableSeats {
		return math.Round(float64(s.AvailableSeats)/float64(s.TotalWaitingCount)*100) / 100
	}
	return 1.00
}

// Conflict 判断两个教学班是否冲突。
func Conflict(a, b *Section) bool {
	return a.Conflicts(b)
}
