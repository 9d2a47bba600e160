package courses

import (
	"strconv"
	"strings"
)

// parseCapacity 解析 "余量/总容量"，坏数据按(0,0)处理，不让整次抓取失败。
func parseCapacity(s string) (available, total int) {
	return parsePair(s, "/")
}

// parseWaiting 解析 "本专业候补~总候补"。
func parseWaiting(s string) (major, total int) {
	return parsePair(s, "~")
}

func parsePair(s, sep string) (int, int) {
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0
	}
	first, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	second, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return first, second
}

// parseCourseInfo 解析 "名称~学分~周学时" 组合字段。
func parseCourseInfo(kcxx string) (credits float64, weekTime string) {
	parts := strings.Split(kcxx, "~")
	if len(parts) > 1 {
		credits, _ = strconv.ParseFloat(parts[1], 64)
	}
	if len(parts) > 2 {
		weekTime = parts[2]
	}
	return credits, weekTime
}

// splitLines 上游用<br>分隔多行字段。
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "<br>")
}
