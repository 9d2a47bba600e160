package teachers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"zju-course-assistant/internal/store"
)

// ratingSite 评分站桩：只有existing里的ID有详情页，其余404。
type ratingSite struct {
	existing map[int]*Teacher

	mu        sync.Mutex
	requested []int
}

func newRatingSite(t *testing.T, existing map[int]*Teacher) (*ratingSite, *httptest.Server) {
	t.Helper()
	site := &ratingSite{existing: existing}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "t" {
			http.NotFound(w, r)
			return
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}

		site.mu.Lock()
		site.requested = append(site.requested, id)
		site.mu.Unlock()

		teacher, ok := site.existing[id]
		if !ok {
			http.NotFound(w, r)
			return
		}

		rating := fmt.Sprintf("%.1f", teacher.Rating)
		if teacher.Rating == 0 {
			rating = "N/A"
		}
		fmt.Fprintf(w, `<html><div class="teacher">
<h3>%s</h3>
<p>教师</p>
<p>%s</p>
<div class="right"><h2>%s</h2></div>
</div>
<div class="course-list-1"><div class="row">课程</div>`, teacher.Name, teacher.College, rating)
		for _, c := range teacher.Courses {
			fmt.Fprintf(w, `<div class="row"><p class="course_name">%s</p></div>`, c)
		}
		fmt.Fprint(w, `</div></html>`)
	}))
	t.Cleanup(srv.Close)
	return site, srv
}

func (s *ratingSite) requestedIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.requested...)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return st
}

func TestRunStopsAfterFailStreak(t *testing.T) {
	existing := map[int]*Teacher{
		1: {Name: "李老师", College: "计算机学院", Rating: 8.7, Courses: []string{"程序设计基础"}},
		2: {Name: "王老师", College: "物理学院", Rating: 9.1},
		3: {Name: "张老师", College: "数学学院", Rating: 0}, // N/A评分
	}
	site, srv := newRatingSite(t, existing)
	st := newTestStore(t)

	h := NewHarvester(st, srv.URL, "")
	h.Run(context.Background())

	// 断点落在最后一个确认存在的ID上
	if v, err := st.GetValue(store.KeyLastTeacherID); err != nil || v != "3" {
		t.Fatalf("checkpoint = (%q, %v), want (\"3\", nil)", v, err)
	}

	// 连续失败MaxFailCount次后收手
	ids := site.requestedIDs()
	if len(ids) != 3+MaxFailCount {
		t.Fatalf("requested %d pages, want %d", len(ids), 3+MaxFailCount)
	}

	if rating, ok := h.RatingFor("李老师"); !ok || rating != 8.7 {
		t.Errorf("RatingFor(李老师) = (%v,%v)", rating, ok)
	}
	if rating, ok := h.RatingFor("张老师"); !ok || rating != 0 {
		t.Errorf("N/A评分应记为0, got (%v,%v)", rating, ok)
	}

	// 爬到的数据要落盘，重开能恢复
	h2 := NewHarvester(st, srv.URL, "")
	if rating, ok := h2.RatingFor("王老师"); !ok || rating != 9.1 {
		t.Errorf("restored RatingFor(王老师) = (%v,%v)", rating, ok)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	site, srv := newRatingSite(t, map[int]*Teacher{})
	st := newTestStore(t)
	if err := st.SetValue(store.KeyLastTeacherID, "5"); err != nil {
		t.Fatalf("failed to seed checkpoint: %v", err)
	}

	h := NewHarvester(st, srv.URL, "")
	h.Run(context.Background())

	ids := site.requestedIDs()
	if len(ids) == 0 || ids[0] != 6 {
		t.Fatalf("first probed id = %v, want 6", ids)
	}
}

func TestImportSeed(t *testing.T) {
	site, srv := newRatingSite(t, map[int]*Teacher{})
	st := newTestStore(t)

	seed := []*Teacher{
		{ID: 10, Name: "李老师", College: "计算机学院", Rating: 8.7},
		{ID: 42, Name: "王老师", College: "物理学院", Rating: 9.1},
	}
	data, _ := json.Marshal(seed)
	seedPath := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(seedPath, data, 0o600); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}

	h := NewHarvester(st, srv.URL, seedPath)
	h.Run(context.Background())

	if v, err := st.GetValue(store.KeyTeacherDataInitialized); err != nil || v != "1" {
		t.Fatalf("seed marker = (%q, %v)", v, err)
	}
	if rating, ok := h.RatingFor("王老师"); !ok || rating != 9.1 {
		t.Errorf("RatingFor(王老师) = (%v,%v)", rating, ok)
	}
	// 扫描从种子里最大ID之后接着走
	if ids := site.requestedIDs(); len(ids) == 0 || ids[0] != 43 {
		t.Fatalf("first probed id = %v, want 43", ids)
	}

	// 第二次启动不再重复导入
	site.mu.Lock()
	site.requested = nil
	site.mu.Unlock()
	h2 := NewHarvester(st, srv.URL, seedPath)
	h2.Run(context.Background())
	if ids := site.requestedIDs(); len(ids) == 0 || ids[0] != 43 {
		t.Fatalf("second run first probed id = %v, want 43", ids)
	}
}

func TestGetInstructorsRanking(t *testing.T) {
	_, srv := newRatingSite(t, map[int]*Teacher{})
	st := newTestStore(t)

	now := time.Now()
	saved := []*Teacher{
		{ID: 1, Name: "李老师", College: "物理学院", Courses: []string{"大学物理"}, LastUpdated: now},
		{ID: 2, Name: "李老师", College: "计算机学院", Courses: []string{"程序设计基础"}, LastUpdated: now},
		{ID: 3, Name: "王老师", College: "数学学院", LastUpdated: now},
	}
	if err := st.SaveEncrypted(st.TeachersFile(), saved); err != nil {
		t.Fatalf("failed to seed teachers: %v", err)
	}

	h := NewHarvester(st, srv.URL, "")

	// 课程匹配+2，应排到前面
	list := h.GetInstructors(context.Background(), "李老师", "程序设计", "")
	if len(list) != 2 {
		t.Fatalf("got %d teachers, want 2", len(list))
	}
	if list[0].ID != 2 {
		t.Errorf("course hint should rank id 2 first, got %d", list[0].ID)
	}

	// 学院匹配+1
	list = h.GetInstructors(context.Background(), "李老师", "", "物理")
	if list[0].ID != 1 {
		t.Errorf("college hint should rank id 1 first, got %d", list[0].ID)
	}

	if list := h.GetInstructors(context.Background(), "查无此人", "x", "y"); len(list) != 0 {
		t.Errorf("unknown name should match nothing, got %v", list)
	}
}

func TestGetInstructorsRefreshesStale(t *testing.T) {
	existing := map[int]*Teacher{
		7: {Name: "李老师", College: "计算机学院", Rating: 9.3, Courses: []string{"编译原理"}},
	}
	site, srv := newRatingSite(t, existing)
	st := newTestStore(t)

	stale := []*Teacher{
		{ID: 7, Name: "李老师", College: "计算机学院", Rating: 5.0, LastUpdated: time.Now().Add(-30 * 24 * time.Hour)},
	}
	if err := st.SaveEncrypted(st.TeachersFile(), stale); err != nil {
		t.Fatalf("failed to seed teachers: %v", err)
	}

	h := NewHarvester(st, srv.URL, "")
	list := h.GetInstructors(context.Background(), "李老师", "编译", "")
	if len(list) != 1 {
		t.Fatalf("got %d teachers, want 1", len(list))
	}
	if list[0].Rating != 9.3 {
		t.Errorf("stale record should be refreshed, rating = %v", list[0].Rating)
	}
	if ids := site.requestedIDs(); len(ids) != 1 || ids[0] != 7 {
		t.Errorf("requested ids = %v, want [7]", ids)
	}

	// 刷新完落盘，重开能看到新评分
	h2 := NewHarvester(st, srv.URL, "")
	if rating, ok := h2.RatingFor("李老师"); !ok || rating != 9.3 {
		t.Errorf("restored rating = (%v,%v), want (9.3,true)", rating, ok)
	}
}
