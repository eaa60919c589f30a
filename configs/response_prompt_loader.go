package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResponsePromptConfig はresponse_prompt.yamlの構造を定義。
// 応答生成プロンプトのトーンやガイドラインをデプロイ先ごとに
// 差し替えられるようにする。ファイルが無ければ組み込みの
// プロンプトがそのまま使われる。
type ResponsePromptConfig struct {
	System struct {
		Role     string `yaml:"role"`
		Language string `yaml:"language"`
	} `yaml:"system"`

	Guidelines []string `yaml:"guidelines"`

	Tone struct {
		Style       string `yaml:"style"`
		Personality string `yaml:"personality"`
	} `yaml:"tone"`

	Constraints []string `yaml:"constraints"`
}

var cachedResponsePrompt *ResponsePromptConfig

// LoadResponsePrompt はYAMLファイルから応答プロンプト設定を読み込む
func LoadResponsePrompt() (*ResponsePromptConfig, error) {
	if cachedResponsePrompt != nil {
		return cachedResponsePrompt, nil
	}

	data, err := os.ReadFile("configs/response_prompt.yaml")
	if err != nil {
		return nil, fmt.Errorf("応答プロンプト設定ファイルの読み込みに失敗: %w", err)
	}

	var cfg ResponsePromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}

	cachedResponsePrompt = &cfg
	return cachedResponsePrompt, nil
}

// BuildSystemPrompt は設定から応答生成用のシステムプロンプトを構築
func (c *ResponsePromptConfig) BuildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are %s.\n\n", c.System.Role))

	if len(c.Guidelines) > 0 {
		sb.WriteString("Guidelines:\n")
		for i, g := range c.Guidelines {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, g))
		}
		sb.WriteString("\n")
	}

	if c.Tone.Style != "" || c.Tone.Personality != "" {
		sb.WriteString(fmt.Sprintf("Tone: %s. %s\n\n", c.Tone.Style, c.Tone.Personality))
	}

	if len(c.Constraints) > 0 {
		sb.WriteString("Constraints:\n")
		for _, constraint := range c.Constraints {
			sb.WriteString(fmt.Sprintf("- %s\n", constraint))
		}
	}

	return sb.String()
}
