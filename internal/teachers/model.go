package teachers

import "time"

// Teacher 公开评分站上的一位教师。ID由对方站点分配，大体连续但有空洞。
type Teacher struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	College     string    `json:"college"`
	Rating      float64   `json:"rating"`
	Courses     []string  `json:"courses"`
	LastUpdated time.Time `json:"last_updated"`
}
