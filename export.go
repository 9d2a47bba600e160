package main

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"zju-course-assistant/internal/courses"
	"zju-course-assistant/internal/timeslot"
	"zju-course-assistant/pkg"
)

// BuildTimetable 把已选教学班导出成日历：考试是定时事件，
// 每周课表取下周对应的那天生成事件，地点按时段对上。
func BuildTimetable(sections []*courses.Section) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	now := pkg.GetCurrentShanghaiTime()

	for _, section := range sections {
		name := section.ID
		if section.Course != nil && section.Course.Name != "" {
			name = section.Course.Name
		}

		if section.ExamTime != nil {
			exam := section.ExamTime
			event := cal.AddEvent(fmt.Sprintf("exam-%s", section.ID))
			event.SetCreatedTime(now)
			event.SetSummary(name + " 考试")
			event.SetStartAt(combine(exam.Date, exam.Start))
			event.SetEndAt(combine(exam.Date, exam.End))
		}

		for i, flag := range section.Flags() {
			_, weekday, _, periods := timeslot.Decode(flag)

			first, last := periodRange(periods)
			if first == 0 {
				continue
			}
			startStr, _, ok1 := pkg.PeriodTimes(first)
			_, endStr, ok2 := pkg.PeriodTimes(last)
			if !ok1 || !ok2 {
				continue
			}

			day := nextWeekday(now, weekday)
			start, err1 := time.ParseInLocation("2006-01-02 15:04", day.Format("2006-01-02")+" "+startStr, now.Location())
			end, err2 := time.ParseInLocation("2006-01-02 15:04", day.Format("2006-01-02")+" "+endStr, now.Location())
			if err1 != nil || err2 != nil {
				continue
			}

			event := cal.AddEvent(fmt.Sprintf("class-%s-%d", section.ID, i))
			event.SetCreatedTime(now)
			event.SetSummary(name)
			event.SetStartAt(start)
			event.SetEndAt(end)
			if loc := section.LocationFor(flag); loc != "" {
				event.SetLocation(loc)
			}
		}
	}

	return cal.Serialize()
}

func combine(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, date.Location())
}

// periodRange 取节次位图里最小和最大的节次。
func periodRange(periods int) (first, last int) {
	for p := 1; p <= 13; p++ {
		if periods&(1<<(p-1)) != 0 {
			if first == 0 {
				first = p
			}
			last = p
		}
	}
	return first, last
}

// nextWeekday 从now往后数，下一个周weekday（周一为0）对应的日期。
func nextWeekday(now time.Time, weekday int) time.Time {
	target := (weekday + 1) % 7 // time.Weekday周日为0
	offset := (target - int(now.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return now.AddDate(0, 0, offset)
}
