package pkg

import (
	"time"
)

// 第1~13节的上下课时间
var periodTimes = map[int][2]string{
	1:  {"08:00", "08:45"},
	2:  {"08:50", "09:35"},
	3:  {"09:50", "10:35"},
	4:  {"10:40", "11:25"},
	5:  {"11:30", "12:15"},
	6:  {"13:25", "14:10"},
	7:  {"14:15", "15:00"},
	8:  {"15:05", "15:50"},
	9:  {"16:05", "16:50"},
	10: {"16:55", "17:40"},
	11: {"18:50", "19:35"},
	12: {"19:40", "20:25"},
	13: {"20:30", "21:15"},
}

// PeriodTimes 返回某节次的上下课时刻("15:04"格式)。
func PeriodTimes(period int) (start, end string, ok bool) {
	t, ok := periodTimes[period]
	if !ok {
		return "", "", false
	}
	return t[0], t[1], true
}

// GetCurrentShanghaiTime 按校历所在时区取当前时间。
func GetCurrentShanghaiTime() time.Time {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.Now()
	}
	return time.Now().In(loc)
}
