package auther

import (
	"net/http"
	"time"
)

// Credential 首次登录成功后保存的账号凭据，登出时销毁。
type Credential struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// SessionToken 一条会话Cookie。
type SessionToken struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Profile 选课系统登录后抓取到的学生信息，后续查询要带这些表单字段。
type Profile struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Major        string `json:"major"`
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`
}

// AccountSession 一次完整登录的产物。Tokens整组替换，从不逐条合并。
type AccountSession struct {
	Credential  Credential     `json:"credential"`
	Tokens      []SessionToken `json:"tokens"`
	Profile     Profile        `json:"profile"`
	ValidatedAt time.Time      `json:"validated_at"`
}

// Cookies 把会话Token转成http.Cookie。
func (s *AccountSession) Cookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		cookies = append(cookies, &http.Cookie{
			Name:   t.Name,
			Value:  t.Value,
			Domain: t.Domain,
			Path:   t.Path,
		})
	}
	return cookies
}
