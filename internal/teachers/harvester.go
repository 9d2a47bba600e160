package teachers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"zju-course-assistant/internal/store"
)

const (
	// BatchSize 每连续成功这么多条就落一次断点。
	BatchSize = 100
	// MaxFailCount 连续失败这么多次就认为扫到头了。
	MaxFailCount = 10

	// staleAfter 被消费的数据超过这个时长才回源刷新。
	staleAfter = 3 * 24 * time.Hour
)

// Harvester 顺序爬取公开评分站的教师详情页。单写者：只有Run的循环
// 和带提示的查询会改数据，都在同一把锁下。
type Harvester struct {
	store    *store.Store
	baseURL  string
	seedPath string
	client   *http.Client

	mu       sync.Mutex
	teachers map[int]*Teacher
}

func NewHarvester(st *store.Store, baseURL, seedPath string) *Harvester {
	h := &Harvester{
		store:    st,
		baseURL:  baseURL,
		seedPath: seedPath,
		client:   &http.Client{Timeout: 30 * time.Second},
		teachers: make(map[int]*Teacher),
	}

	var saved []*Teacher
	if err := st.LoadEncrypted(st.TeachersFile(), &saved); err == nil {
		for _, t := range saved {
			h.teachers[t.ID] = t
		}
	}
	return h
}

func (h *Harvester) checkpoint() int {
	v, err := h.store.GetValue(store.KeyLastTeacherID)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (h *Harvester) setCheckpoint(id int) {
	if err := h.store.SetValue(store.KeyLastTeacherID, strconv.Itoa(id)); err != nil {
		log.Printf("harvester: failed to persist checkpoint: %v", err)
	}
}

func (h *Harvester) persist() {
	h.mu.Lock()
	saved := make([]*Teacher, 0, len(h.teachers))
	for _, t := range h.teachers {
		saved = append(saved, t)
	}
	h.mu.Unlock()

	sort.Slice(saved, func(i, j int) bool { return saved[i].ID < saved[j].ID })
	if err := h.store.SaveEncrypted(h.store.TeachersFile(), saved); err != nil {
		log.Printf("harvester: failed to persist teachers: %v", err)
	}
}

// Run 先尝试一次性导入种子数据，然后从断点+1开始顺序扫描。
// 刻意不并行：对方站点对频率敏感，而且断点依赖严格递增的探测顺序。
func (h *Harvester) Run(ctx context.Context) {
	h.importSeed()

	lastSuccess := h.checkpoint()
	id := lastSuccess + 1
	batchCount := 0
	failCount := 0

	for {
		select {
		case <-ctx.Done():
			h.setCheckpoint(lastSuccess)
			h.persist()
			return
		default:
		}

		teacher, err := h.scrape(ctx, id)
		if err != nil {
			// 网络挂了，留下断点下次接着扫
			h.setCheckpoint(lastSuccess)
			h.persist()
			return
		}
		if teacher == nil {
			failCount++
			if failCount >= MaxFailCount {
				break
			}
			id++
			continue
		}

		failCount = 0
		lastSuccess = id
		teacher.ID = id
		teacher.LastUpdated = time.Now()

		h.mu.Lock()
		h.teachers[id] = teacher
		h.mu.Unlock()

		batchCount++
		if batchCount >= BatchSize {
			h.setCheckpoint(lastSuccess)
			h.persist()
			batchCount = 0
		}

		id++
	}

	h.setCheckpoint(lastSuccess)
	h.persist()
}

// importSeed 没有任何往次记录时，从快照文件批量导入一次。
func (h *Harvester) importSeed() {
	if _, err := h.store.GetValue(store.KeyTeacherDataInitialized); err == nil {
		return
	}
	if h.seedPath == "" {
		return
	}

	data, err := os.ReadFile(h.seedPath)
	if err != nil {
		return
	}
	var seed []*Teacher
	if err := json.Unmarshal(data, &seed); err != nil {
		log.Printf("harvester: bad seed file: %v", err)
		return
	}
	if len(seed) == 0 {
		return
	}

	maxID := 0
	h.mu.Lock()
	for _, t := range seed {
		h.teachers[t.ID] = t
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	h.mu.Unlock()

	if err := h.store.SetValue(store.KeyTeacherDataInitialized, "1"); err != nil {
		log.Printf("harvester: failed to mark seed import: %v", err)
	}
	h.setCheckpoint(maxID)
	h.persist()
	log.Printf("harvester: imported %d teachers from seed", len(seed))
}

// scrape 抓一个详情页。页面缺失返回(nil, nil)算一次失败；请求本身
// 发不出去才返回错误。
func (h *Harvester) scrape(ctx context.Context, id int) (*Teacher, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/t/%d/", h.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil
	}

	name := strings.TrimSpace(doc.Find("div.teacher h3").First().Text())
	if name == "" {
		return nil, nil
	}

	ratingStr := strings.TrimSpace(doc.Find("div.teacher div.right h2").First().Text())
	if ratingStr == "" || ratingStr == "N/A" {
		ratingStr = "0"
	}
	rating, err := strconv.ParseFloat(ratingStr, 64)
	if err != nil {
		rating = 0
	}

	teacher := &Teacher{
		Name:    name,
		College: strings.TrimSpace(doc.Find("div.teacher p").Eq(1).Text()),
		Rating:  rating,
	}

	doc.Find("div[class*='course-list'] div[class*='row']").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // 表头行
		}
		if courseName := strings.TrimSpace(row.Find("p.course_name").Text()); courseName != "" {
			teacher.Courses = append(teacher.Courses, courseName)
		}
	})

	return teacher, nil
}

// GetInstructors 按姓名查教师。给了课程或学院提示时，先把超过三天
// 没更新的记录刷新一遍，再按 课程匹配+2 学院匹配+1 降序排。
func (h *Harvester) GetInstructors(ctx context.Context, name, courseHint, collegeHint string) []Teacher {
	h.mu.Lock()
	var matched []*Teacher
	for _, t := range h.teachers {
		if t.Name == name {
			matched = append(matched, t)
		}
	}
	h.mu.Unlock()

	if len(matched) == 0 || (courseHint == "" && collegeHint == "") {
		return copyTeachers(matched)
	}

	refreshed := false
	for _, t := range matched {
		if time.Since(t.LastUpdated) <= staleAfter {
			continue
		}
		latest, err := h.scrape(ctx, t.ID)
		if err != nil || latest == nil {
			continue
		}
		latest.ID = t.ID
		latest.LastUpdated = time.Now()

		h.mu.Lock()
		h.teachers[t.ID] = latest
		h.mu.Unlock()
		*t = *latest
		refreshed = true
	}
	if refreshed {
		h.persist()
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return h.score(matched[i], courseHint, collegeHint) > h.score(matched[j], courseHint, collegeHint)
	})
	return copyTeachers(matched)
}

func (h *Harvester) score(t *Teacher, courseHint, collegeHint string) int {
	score := 0
	if courseHint != "" {
		for _, c := range t.Courses {
			if strings.Contains(strings.ToLower(c), strings.ToLower(courseHint)) {
				score += 2
				break
			}
		}
	}
	if collegeHint != "" && strings.Contains(strings.ToLower(t.College), strings.ToLower(collegeHint)) {
		score++
	}
	return score
}

// RatingFor 取同名教师的评分，给课程抓取器补口碑用。
func (h *Harvester) RatingFor(name string) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.teachers {
		if t.Name == name {
			return t.Rating, true
		}
	}
	return 0, false
}

func copyTeachers(ts []*Teacher) []Teacher {
	out := make([]Teacher, 0, len(ts))
	for _, t := range ts {
		out = append(out, *t)
	}
	return out
}
