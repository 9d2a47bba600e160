package timeslot

// Flag 把一个上课时段压缩进32位:
// 0..12位 节次位图(第1~13节), 13位 单双周, 14..16位 周几(周一为0), 17..18位 学期(春夏秋冬).
type Flag uint32

const (
	PeriodMask   Flag = 0b0000_0000_0000_0000_0001_1111_1111_1111
	PeriodOffset      = 0
	ParityMask   Flag = 0b0000_0000_0000_0000_0010_0000_0000_0000
	ParityOffset      = 13
	WeekdayMask  Flag = 0b0000_0000_0000_0001_1100_0000_0000_0000
	WeekdayOffset     = 14
	SemesterMask Flag = 0b0000_0000_0000_0110_0000_0000_0000_0000
	SemesterOffset    = 17
)

const (
	SemesterSpring = 0
	SemesterSummer = 1
	SemesterAutumn = 2
	SemesterWinter = 3
)

const (
	ParityOdd  = 0 // 单周
	ParityEven = 1 // 双周
)

// Encode 组装时段标志。
func Encode(semester, weekday, parity, periods int) Flag {
	return Flag(semester)<<SemesterOffset |
		Flag(weekday)<<WeekdayOffset |
		Flag(parity)<<ParityOffset |
		Flag(periods)<<PeriodOffset
}

// Decode 拆出(学期, 周几, 单双周, 节次位图)。
func Decode(f Flag) (semester, weekday, parity, periods int) {
	semester = int((f & SemesterMask) >> SemesterOffset)
	weekday = int((f & WeekdayMask) >> WeekdayOffset)
	parity = int((f & ParityMask) >> ParityOffset)
	periods = int((f & PeriodMask) >> PeriodOffset)
	return
}

// Overlaps 判断两个时段是否撞车：学期、周几、单双周都一致且节次位图有交集。
func (f Flag) Overlaps(other Flag) bool {
	sl, wl, pl, bl := Decode(f)
	sr, wr, pr, br := Decode(other)
	return sl == sr && wl == wr && pl == pr && bl&br != 0
}
