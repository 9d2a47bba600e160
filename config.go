package main

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`

	SSOLoginURL  string `yaml:"sso_login_url"`
	SSOPubKeyURL string `yaml:"sso_pubkey_url"`
	ZdbkBaseURL  string `yaml:"zdbk_base_url"`

	ChalaoshiBaseURL string `yaml:"chalaoshi_base_url"`
	TeacherSeedPath  string `yaml:"teacher_seed_path"`
}

func defaultConfig() Config {
	return Config{
		Addr:             ":15147",
		DataDir:          "data",
		SSOLoginURL:      "https://zjuam.zju.edu.cn/cas/login",
		SSOPubKeyURL:     "https://zjuam.zju.edu.cn/cas/v2/getPubKey",
		ZdbkBaseURL:      "http://zdbk.zju.edu.cn/jwglxt",
		ChalaoshiBaseURL: "https://chalaoshi.click",
		TeacherSeedPath:  "data/teachers_seed.json",
	}
}

// LoadConfig 读yaml配置，缺省值兜底；.env里的值只给测试和本地调试用。
func LoadConfig(filename string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
