package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	sessionFile  = "session.json"
	teachersFile = "teachers.json"
	metaFile     = "meta.json"
)

const (
	// KeyLastTeacherID 爬虫断点：最后一个确认存在的教师ID。
	KeyLastTeacherID = "LastTeacherId"
	// KeyTeacherDataInitialized 种子数据是否已导入过。
	KeyTeacherDataInitialized = "TeacherDataInitialized"
)

var ErrNotFound = errors.New("record not found")

// Store 负责本地落盘：会话凭据和教师数据加密存储，杂项键值对明文存储。
// 加密密钥由机器名派生，换机器后旧数据作废即可。
type Store struct {
	dir string
	gcm cipher.AEAD
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	key := pbkdf2.Key([]byte(hostname), []byte("zju-course-assistant"), 10000, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	return &Store{dir: dir, gcm: gcm}, nil
}

// SaveEncrypted 把v序列化为JSON后加密写入name文件。
func (s *Store) SaveEncrypted(name string, v any) error {
	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, plain, nil)

	return os.WriteFile(filepath.Join(s.dir, name), sealed, 0o600)
}

// LoadEncrypted 解密name文件并反序列化到v。文件不存在返回ErrNotFound。
func (s *Store) LoadEncrypted(name string, v any) error {
	sealed, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(sealed) < s.gcm.NonceSize() {
		return fmt.Errorf("corrupt file %s", name)
	}

	plain, err := s.gcm.Open(nil, sealed[:s.gcm.NonceSize()], sealed[s.gcm.NonceSize():], nil)
	if err != nil {
		return fmt.Errorf("failed to decrypt %s: %w", name, err)
	}

	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// Delete 删除落盘文件。不存在不算错。
func (s *Store) Delete(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) loadMeta() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	meta := make(map[string]string)
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse meta: %w", err)
	}
	return meta, nil
}

// GetValue 读一条键值记录。
func (s *Store) GetValue(key string) (string, error) {
	meta, err := s.loadMeta()
	if err != nil {
		return "", err
	}
	v, ok := meta[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// SetValue 写一条键值记录。
func (s *Store) SetValue(key, value string) error {
	meta, err := s.loadMeta()
	if err != nil {
		return err
	}
	meta[key] = value
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, metaFile), data, 0o600)
}

func (s *Store) SessionFile() string  { return sessionFile }
func (s *Store) TeachersFile() string { return teachersFile }
