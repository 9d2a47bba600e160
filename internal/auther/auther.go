package auther

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"zju-course-assistant/internal/crypt"
)

var (
	ErrNotLoggedIn          = errors.New("user is not logged in")
	ErrIncorrectCredentials = errors.New("incorrect username or password")
	ErrAccountLocked        = errors.New("the account may be locked")
	ErrMissingExecution     = errors.New("failed to get execution value")
)

const (
	ssoRedirectPath = "/xtgl/login_ssologin.html"
	loginForwardPath = "/xtgl/dl_loginForward.html"
	infoPath        = "/xsxk/zzxkghb_cxZzxkGhbIndex.html"

	ssoTokenName = "iPlanetDirectoryPro"
)

var studentIDRegex = regexp.MustCompile(`\((\d+)\)`)

// Authenticator 走一遍统一身份认证的登录流程，并把票据换成选课系统的会话。
type Authenticator struct {
	LoginURL  string // 统一身份认证登录页
	PubKeyURL string // RSA公钥接口
	ServiceURL string // 选课系统根地址
}

func New(loginURL, pubKeyURL, serviceURL string) *Authenticator {
	return &Authenticator{
		LoginURL:   loginURL,
		PubKeyURL:  pubKeyURL,
		ServiceURL: serviceURL,
	}
}

// newClient 模拟浏览器的客户端：带Cookie罐，跟随重定向，不校验证书。
func newClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36")
}

// Login 执行完整登录：取execution、取公钥、加密密码、提交表单、截获SSO票据，
// 再换取选课系统会话并抓取学生信息。
func (a *Authenticator) Login(ctx context.Context, username, password string) (*AccountSession, error) {
	client := newClient(30 * time.Second)

	execution, err := a.fetchExecution(ctx, client)
	if err != nil {
		return nil, err
	}

	modulus, exponent, err := a.fetchPubKey(ctx, client)
	if err != nil {
		return nil, err
	}

	encryptedPass, err := crypt.EncryptPasswordHex(password, modulus, exponent)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt password: %w", err)
	}

	form := url.Values{
		"username":  {username},
		"password":  {encryptedPass},
		"authcode":  {""},
		"execution": {execution},
		"_eventId":  {"submit"},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit login form: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, ErrAccountLocked
	}

	ssoToken, ok := findCookie(client, a.LoginURL, ssoTokenName)
	if !ok {
		return nil, ErrIncorrectCredentials
	}

	tokens := []SessionToken{ssoToken}

	serviceTokens, profile, err := a.exchangeServiceSession(ctx, client, username)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, serviceTokens...)

	return &AccountSession{
		Credential:  Credential{ID: username, Secret: password},
		Tokens:      tokens,
		Profile:     profile,
		ValidatedAt: time.Now(),
	}, nil
}

// fetchExecution 登录页偶尔渲染不出隐藏域，重试3次。
func (a *Authenticator) fetchExecution(ctx context.Context, client *http.Client) (string, error) {
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", a.LoginURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		setBrowserHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch login page: %w", err)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to parse login page: %w", err)
		}

		if execution, _ := doc.Find("input[name='execution']").Attr("value"); execution != "" {
			return execution, nil
		}
	}
	return "", ErrMissingExecution
}

func (a *Authenticator) fetchPubKey(ctx context.Context, client *http.Client) (modulus, exponent string, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.PubKeyURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	var pubKey struct {
		Modulus  string `json:"modulus"`
		Exponent string `json:"exponent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pubKey); err != nil {
		return "", "", fmt.Errorf("failed to parse public key response: %w", err)
	}
	if pubKey.Modulus == "" {
		return "", "", fmt.Errorf("failed to get modulus")
	}
	if pubKey.Exponent == "" {
		return "", "", fmt.Errorf("failed to get exponent")
	}
	return pubKey.Modulus, pubKey.Exponent, nil
}

// exchangeServiceSession 带着SSO票据访问CAS的service跳转，拿选课系统的
// JSESSIONID和route，再抓一次选课首页提取学生信息。
func (a *Authenticator) exchangeServiceSession(ctx context.Context, client *http.Client, username string) ([]SessionToken, Profile, error) {
	ssoURL := fmt.Sprintf("%s?service=%s", a.LoginURL, url.QueryEscape(a.ServiceURL+ssoRedirectPath))
	req, err := http.NewRequestWithContext(ctx, "GET", ssoURL, nil)
	if err != nil {
		return nil, Profile{}, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, Profile{}, fmt.Errorf("failed to follow service redirect: %w", err)
	}
	resp.Body.Close()

	jSessionID, ok1 := findCookie(client, a.ServiceURL, "JSESSIONID")
	route, ok2 := findCookie(client, a.ServiceURL, "route")
	if !ok1 || !ok2 {
		return nil, Profile{}, ErrNotLoggedIn
	}

	profile, err := a.fetchProfile(ctx, client, username)
	if err != nil {
		return nil, Profile{}, err
	}

	return []SessionToken{jSessionID, route}, profile, nil
}

func (a *Authenticator) fetchProfile(ctx context.Context, client *http.Client, username string) (Profile, error) {
	infoURL := fmt.Sprintf("%s%s?gnmkdm=N253530&su=%s", a.ServiceURL, infoPath, username)
	req, err := http.NewRequestWithContext(ctx, "GET", infoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to fetch selection index: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to parse selection index: %w", err)
	}

	header := doc.Find("#chi h5 span").First()
	name := header.Find("font b").First().Text()

	studentID := username
	if m := studentIDRegex.FindStringSubmatch(header.Text()); m != nil {
		studentID = m[1]
	}

	profile := Profile{
		StudentID:    studentID,
		Name:         strings.TrimSpace(name),
		Grade:        doc.Find("#nj").AttrOr("value", ""),
		Major:        doc.Find("#zydm").AttrOr("value", ""),
		AcademicYear: strings.TrimSpace(doc.Find("#xkxn").Text()),
		Semester:     doc.Find("#xq").AttrOr("value", ""),
	}
	if profile.Grade == "" || profile.AcademicYear == "" {
		return Profile{}, fmt.Errorf("failed to extract student profile")
	}
	return profile, nil
}

// Probe 用已有会话探活：访问登录转发页，落在主菜单说明会话有效，
// 被弹回登录页或超时都算失效。
func (a *Authenticator) Probe(ctx context.Context, session *AccountSession, timeout time.Duration) bool {
	client := newClient(timeout)

	serviceURL, err := url.Parse(a.ServiceURL)
	if err != nil {
		return false
	}
	client.Jar.SetCookies(serviceURL, session.Cookies())

	req, err := http.NewRequestWithContext(ctx, "GET", a.ServiceURL+loginForwardPath, nil)
	if err != nil {
		return false
	}
	setBrowserHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return strings.Contains(resp.Request.URL.String(), "index_initMenu.html")
}

func findCookie(client *http.Client, rawURL, name string) (SessionToken, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SessionToken{}, false
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return SessionToken{Name: c.Name, Value: c.Value, Domain: u.Hostname(), Path: "/"}, true
		}
	}
	return SessionToken{}, false
}
