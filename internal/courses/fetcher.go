package courses

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"zju-course-assistant/internal/auther"
	"zju-course-assistant/internal/session"
	"zju-course-assistant/internal/timeslot"
)

const (
	selectedPath     = "/xsxk/zzxkghb_cxZzxkGhbChoosed.html"
	courseListPath   = "/xsxk/zzxkghb_cxZzxkGhbKcList.html"
	sectionListPath  = "/xsxk/zzxkghb_cxZzxkGhbJxbList.html"
	introductionPath = "/xkjjsc/kcjjck_cxXkjjPage.html"
	graduationPath   = "/bysh/byshck_cxByshzsIndex.html"
)

// RatingSource 教师口碑查询，由教师库提供。
type RatingSource interface {
	RatingFor(name string) (float64, bool)
}

// Fetcher 带着有效会话去选课系统拉数据，把上游字段翻译成领域对象。
type Fetcher struct {
	sup     *session.Supervisor
	baseURL string
	ratings RatingSource // 可以为nil
}

func NewFetcher(sup *session.Supervisor, baseURL string, ratings RatingSource) *Fetcher {
	return &Fetcher{sup: sup, baseURL: baseURL, ratings: ratings}
}

// client 为一次请求构造带会话Cookie的客户端。每次拿会话快照，不共享写。
func (f *Fetcher) client(sess *auther.AccountSession) (*http.Client, error) {
	jar, _ := cookiejar.New(nil)
	base, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar.SetCookies(base, sess.Cookies())
	return &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}, nil
}

func (f *Fetcher) prepare(ctx context.Context) (*auther.AccountSession, *http.Client, error) {
	if err := f.sup.EnsureValid(ctx); err != nil {
		return nil, nil, err
	}
	sess, err := f.sup.Session()
	if err != nil {
		return nil, nil, err
	}
	cli, err := f.client(sess)
	if err != nil {
		return nil, nil, err
	}
	return sess, cli, nil
}

func (f *Fetcher) postForm(ctx context.Context, cli *http.Client, path, studentID string, form url.Values) ([]byte, error) {
	requestURL := fmt.Sprintf("%s%s?gnmkdm=N253530&su=%s", f.baseURL, path, studentID)
	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type courseItem struct {
	Kcdm   string `json:"kcdm"`
	Xkkh   string `json:"xkkh"`
	Kcmc   string `json:"kcmc"`
	Kcxx   string `json:"kcxx"` // 名称~学分~周学时
	Kkxy   string `json:"kkxy"`
	Kcxz   string `json:"kcxz"`
	Kcxzzt string `json:"kcxzzt"`
}

// FetchAvailableCourses 按大类查询第start到end页的可选课程。
func (f *Fetcher) FetchAvailableCourses(ctx context.Context, category Category, start, end int) ([]*Course, error) {
	sess, cli, err := f.prepare(ctx)
	if err != nil {
		return nil, err
	}

	p := category.params()
	profile := sess.Profile
	form := url.Values{
		"dl":     {p.dl},
		"lx":     {p.lx},
		"nj":     {profile.Grade},
		"xn":     {profile.AcademicYear},
		"xq":     {profile.Semester},
		"zydm":   {profile.Major},
		"jxjhh":  {profile.Grade + profile.Major},
		"xnxq":   {fmt.Sprintf("(%s-%s)-", profile.AcademicYear, profile.Semester)},
		"kspage": {strconv.Itoa(start)},
		"jspage": {strconv.Itoa(end)},
	}
	if p.xkmc != "" {
		form.Set("xkmc", p.xkmc)
	}

	body, err := f.postForm(ctx, cli, courseListPath, profile.StudentID, form)
	if err != nil {
		return nil, err
	}

	var items []courseItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unexpected course list response: %w", err)
	}

	courses := make([]*Course, 0, len(items))
	for _, item := range items {
		credits, weekTime := parseCourseInfo(item.Kcxx)
		courses = append(courses, &Course{
			ID:         item.Kcdm,
			Code:       item.Xkkh,
			Name:       item.Kcmc,
			Credits:    credits,
			WeekTime:   weekTime,
			Category:   category,
			Department: item.Kkxy,
			Property:   item.Kcxz,
			Selected:   item.Kcxzzt == "1",
		})
	}
	return courses, nil
}

type sectionItem struct {
	Xkkh  string `json:"xkkh"`
	Jsxm  string `json:"jsxm"`
	Sksj  string `json:"sksj"`
	Skdd  string `json:"skdd"`
	Kssj  string `json:"kssj"`
	Xxq   string `json:"xxq"`
	Rs    string `json:"rs"`   // 余量/总容量
	Yxrs  string `json:"yxrs"` // 本专业候补~总候补
	Gjhkc string `json:"gjhkc"`
	Jxfs  string `json:"jxfs"`
	Skxs  string `json:"skxs"`
}

// FetchSectionsForCourse 拉取并替换某门课的教学班列表。
func (f *Fetcher) FetchSectionsForCourse(ctx context.Context, course *Course) error {
	sess, cli, err := f.prepare(ctx)
	if err != nil {
		return err
	}

	profile := sess.Profile
	form := url.Values{
		"xn":   {profile.AcademicYear},
		"xq":   {profile.Semester},
		"xkkh": {course.Code},
	}

	body, err := f.postForm(ctx, cli, sectionListPath, profile.StudentID, form)
	if err != nil {
		return err
	}

	var items []sectionItem
	if err := json.Unmarshal(body, &items); err != nil {
		return fmt.Errorf("unexpected section list response: %w", err)
	}

	sections := make([]*Section, 0, len(items))
	for _, item := range items {
		available, capacity := parseCapacity(item.Rs)
		major, total := parseWaiting(item.Yxrs)

		section := &Section{
			ID:                item.Xkkh,
			Course:            course,
			Instructors:       splitLines(item.Jsxm),
			Schedules:         splitLines(item.Sksj),
			Locations:         splitLines(item.Skdd),
			Semesters:         item.Xxq,
			ExamTime:          parseExamTime(item.Kssj),
			TeachingForm:      item.Jxfs,
			TeachingMethod:    item.Skxs,
			IsInternational:   item.Gjhkc == "是",
			AvailableSeats:    available,
			Capacity:          capacity,
			MajorWaitingCount: major,
			TotalWaitingCount: total,
		}
		f.annotateRatings(section)
		sections = append(sections, section)
	}

	course.Sections = sections
	return nil
}

type selectedItem struct {
	Kcdm  string `json:"kcdm"`
	Xkkh  string `json:"xkkh"`
	Kcmc  string `json:"kcmc"`
	Xf    string `json:"xf"`
	Zxs   string `json:"zxs"`
	Jsxm  string `json:"jsxm"`
	Sksj  string `json:"sksj"`
	Skdd  string `json:"skdd"`
	Xxq   string `json:"xxq"`
	Vkssj string `json:"vkssj"`
}

// FetchSelectedSections 已选教学班。
func (f *Fetcher) FetchSelectedSections(ctx context.Context) ([]*Section, error) {
	sess, cli, err := f.prepare(ctx)
	if err != nil {
		return nil, err
	}

	profile := sess.Profile
	form := url.Values{
		"xn": {profile.AcademicYear},
		"xq": {profile.Semester},
	}

	body, err := f.postForm(ctx, cli, selectedPath, profile.StudentID, form)
	if err != nil {
		return nil, err
	}

	var items []selectedItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unexpected selected list response: %w", err)
	}

	sections := make([]*Section, 0, len(items))
	for _, item := range items {
		credits, _ := strconv.ParseFloat(item.Xf, 64)
		course := &Course{
			ID:       item.Kcdm,
			Code:     item.Xkkh,
			Name:     item.Kcmc,
			Credits:  credits,
			WeekTime: item.Zxs,
			Selected: true,
		}
		section := &Section{
			ID:          item.Xkkh,
			Course:      course,
			Instructors: splitLines(item.Jsxm),
			Schedules:   splitLines(item.Sksj),
			Locations:   splitLines(item.Skdd),
			Semesters:   item.Xxq,
			ExamTime:    parseExamTime(item.Vkssj),
		}
		f.annotateRatings(section)
		sections = append(sections, section)
	}
	return sections, nil
}

// FetchIntroduction 课程简介藏在返回页面的隐藏域里。
func (f *Fetcher) FetchIntroduction(ctx context.Context, course *Course) error {
	_, cli, err := f.prepare(ctx)
	if err != nil {
		return err
	}

	introURL := fmt.Sprintf("%s%s?xkjjid=%s&htmlType=kcjj", f.baseURL, introductionPath, course.ID)
	req, err := http.NewRequestWithContext(ctx, "GET", introURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch introduction: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse introduction page: %w", err)
	}

	if intro, ok := doc.Find("input[name='xkjjHtml']").Attr("value"); ok {
		course.Introduction = intro
	}
	return nil
}

// GraduationCourse 毕业要求里的一条课程记录。
type GraduationCourse struct {
	ID      string  `json:"id"`
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Credits float64 `json:"credits"`
	Status  string  `json:"status"` // passed/failed/selected/not_selected/unknown
}

// FetchGraduationCourses 毕业要求对照表。
func (f *Fetcher) FetchGraduationCourses(ctx context.Context) ([]GraduationCourse, error) {
	sess, cli, err := f.prepare(ctx)
	if err != nil {
		return nil, err
	}

	profile := sess.Profile
	gradURL := fmt.Sprintf("%s%s?doType=query&gnmkdm=N6025&su=%s", f.baseURL, graduationPath, profile.StudentID)
	req, err := http.NewRequestWithContext(ctx, "GET", gradURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch graduation requirements: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var items []map[string]string
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unexpected graduation response: %w", err)
	}

	var ret []GraduationCourse
	for _, item := range items {
		id := item["KCDM"]
		name := item["JDMC"]
		creditsStr, hasCredits := item["KCXF"]
		if id == "" || name == "" || name == "课程名称" || !hasCredits {
			continue
		}
		credits, _ := strconv.ParseFloat(creditsStr, 64)
		ret = append(ret, GraduationCourse{
			ID:      id,
			Code:    fmt.Sprintf("T(%s-%s)-%s", profile.AcademicYear, profile.Semester, id),
			Name:    name,
			Credits: credits,
			Status:  graduationStatus(item),
		})
	}
	return ret, nil
}

func graduationStatus(item map[string]string) string {
	switch item["SFTG"] {
	case "通过":
		return "passed"
	case "不通过":
		return "failed"
	case "":
	default:
		return "unknown"
	}
	if item["KCBZ"] == "在修" {
		return "selected"
	}
	return "not_selected"
}

func (f *Fetcher) annotateRatings(section *Section) {
	if f.ratings == nil {
		return
	}
	for _, name := range section.Instructors {
		if rating, ok := f.ratings.RatingFor(name); ok {
			if section.InstructorRatings == nil {
				section.InstructorRatings = make(map[string]float64)
			}
			section.InstructorRatings[name] = rating
		}
	}
}

func parseExamTime(s string) *timeslot.ExamSlot {
	if s == "" {
		return nil
	}
	slot, err := timeslot.ParseExam(s)
	if err != nil {
		return nil
	}
	return &slot
}
