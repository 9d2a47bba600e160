package courses

import "fmt"

// Category 选课页面上的课程大类。
type Category int

const (
	CategoryUndefined Category = iota
	MyCategory
	CompulsoryAll
	CompulsoryIpm
	CompulsoryLan
	CompulsoryCom
	CompulsoryEtp
	CompulsorySci
	ElectiveAll
	ElectiveChC
	ElectiveGlC
	ElectiveSoc
	ElectiveSci
	ElectiveArt
	ElectiveBio
	ElectiveTec
	ElectiveGec
	PhysicalEdu
	MajorFoundation
	MyMajor
	AllMajor
	AccreditedAll
	AccreditedArt
	AccreditedLbr
	International
	Ckc
	Honor
)

// queryParams 每个大类对应上游的三个查询参数：大类码、查询类型码、可选的类目名。
type queryParams struct {
	dl   string
	lx   string
	xkmc string // 为空则不随表单提交
}

var categoryParams = map[Category]queryParams{
	MyCategory:      {"xk_1", "bl", "本类(专业)选课"},
	CompulsoryAll:   {"xk_b", "bl", "全部课程"},
	CompulsoryIpm:   {"E", "zl", `思政类\军体类`},
	CompulsoryLan:   {"F", "zl", "外语类"},
	CompulsoryCom:   {"G", "zl", "计算机类"},
	CompulsoryEtp:   {"P", "zl", "创新创业类"},
	CompulsorySci:   {"T", "zl", "自然科学通识类"},
	ElectiveAll:     {"xk_n", "bl", "全部课程"},
	ElectiveChC:     {"zhct", "zl", "中华传统"},
	ElectiveGlC:     {"sjwm", "zl", "世界文明"},
	ElectiveSoc:     {"ddsh", "zl", "当代社会"},
	ElectiveSci:     {"kjcx", "zl", "科技创新"},
	ElectiveArt:     {"wysm", "zl", "文艺审美"},
	ElectiveBio:     {"smts", "zl", "生命探索"},
	ElectiveTec:     {"byjy", "zl", "博雅技艺"},
	ElectiveGec:     {"xhxk", "zl", "通识核心课程"},
	PhysicalEdu:     {"xk_8", "bl", "体育课程"},
	MajorFoundation: {"xk_zyjckc", "bl", "专业基础课程"},
	MyMajor:         {"zy_b", "bl", "本类(专业)"},
	AllMajor:        {"zy_qb", "bl", "所有类(专业)"},
	AccreditedAll:   {"xk_rdxkc", "bl", "qbkc"},
	AccreditedArt:   {"xk_rdxkc", "zl", "美育类"},
	AccreditedLbr:   {"xk_rdxkc", "zl", "劳育类"},
	International:   {"gjhkc", "zl", "国际化课程"},
	Ckc:             {"Z", "bl", "竺可桢学院课程"},
	Honor:           {"R", "bl", "荣誉课程"},
}

var categoryNames = map[string]Category{
	"my":              MyCategory,
	"compulsory":      CompulsoryAll,
	"compulsory-ipm":  CompulsoryIpm,
	"compulsory-lan":  CompulsoryLan,
	"compulsory-com":  CompulsoryCom,
	"compulsory-etp":  CompulsoryEtp,
	"compulsory-sci":  CompulsorySci,
	"elective":        ElectiveAll,
	"elective-chc":    ElectiveChC,
	"elective-glc":    ElectiveGlC,
	"elective-soc":    ElectiveSoc,
	"elective-sci":    ElectiveSci,
	"elective-art":    ElectiveArt,
	"elective-bio":    ElectiveBio,
	"elective-tec":    ElectiveTec,
	"elective-gec":    ElectiveGec,
	"physical":        PhysicalEdu,
	"major-foundation": MajorFoundation,
	"my-major":        MyMajor,
	"all-major":       AllMajor,
	"accredited":      AccreditedAll,
	"accredited-art":  AccreditedArt,
	"accredited-lbr":  AccreditedLbr,
	"international":   International,
	"ckc":             Ckc,
	"honor":           Honor,
}

// params 取该大类的上游查询参数。传入未建表的大类属于编码错误，直接panic。
func (c Category) params() queryParams {
	p, ok := categoryParams[c]
	if !ok {
		panic(fmt.Sprintf("unmapped course category: %d", c))
	}
	return p
}

// ParseCategory 把API里的类目名转成Category。
func ParseCategory(name string) (Category, bool) {
	c, ok := categoryNames[name]
	return c, ok
}
