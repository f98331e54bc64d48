package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/campusmenu/pkg/llm"
)

const (
	// ToolName is the function the model is forced to call.
	ToolName = "extract_all_menus"
	// ItemsKey is the single array-of-strings argument of ToolName.
	ItemsKey = "all_menus"
)

// SystemPrompt instructs the model how to read a cafeteria slot.
const SystemPrompt = `당신은 한국 대학교 학생식당 메뉴 텍스트를 분석하는 전문 파서입니다.
주어진 텍스트에서 실제로 제공되는 음식 메뉴 이름만 추출하세요.

포함할 것:
- 메인 요리, 밥, 국, 찌개, 반찬, 디저트, 음료

제외할 것:
- 영어 번역, 가격, 알레르기 정보, 원산지 표기
- ★, ※, * 등 장식용 기호
- 홍보 문구, 운영 시간, 코너 이름 등 음식이 아닌 문구

규칙:
- "&" 또는 "/"로 묶인 메뉴는 각각 분리하세요.
- 메뉴 이름의 특수문자는 제거하세요.
- 중복된 메뉴는 한 번만 포함하세요.
- 메뉴가 없다면 빈 배열을 반환하세요.

결과는 반드시 extract_all_menus 함수의 all_menus 배열로 반환하세요.`

const userPrompt = "다음 식당 메뉴 텍스트에서 실제 음식 메뉴만 추출해주세요:\n\n"

// DefaultMaxContentSize caps the slot text sent to the model.
const DefaultMaxContentSize = "8KB"

// menuTool is the forced tool schema: exactly one required array of strings.
var menuTool = llm.Tool{
	Name:        ToolName,
	Description: "모든 메뉴를 추출하여 리스트로 반환",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			ItemsKey: map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "모든 메뉴 목록 (중복 제거, 특수문자 제외)",
			},
		},
		"required":             []string{ItemsKey},
		"additionalProperties": false,
	},
}

// ToolExtractor implements ItemExtractor with a forced LLM tool call.
type ToolExtractor struct {
	provider       llm.Provider
	maxContentSize int
	maxTokens      int
	temperature    float64
}

// ToolOption configures a ToolExtractor.
type ToolOption func(*ToolExtractor)

// WithMaxContentSize truncates slot text to n bytes. Zero disables the cap.
func WithMaxContentSize(n int) ToolOption {
	return func(t *ToolExtractor) { t.maxContentSize = n }
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) ToolOption {
	return func(t *ToolExtractor) { t.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(v float64) ToolOption {
	return func(t *ToolExtractor) { t.temperature = v }
}

// NewToolExtractor creates an extractor backed by provider.
func NewToolExtractor(provider llm.Provider, opts ...ToolOption) *ToolExtractor {
	size, _ := ParseContentSize(DefaultMaxContentSize)
	t := &ToolExtractor{
		provider:       provider,
		maxContentSize: size,
		maxTokens:      1024,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ParseContentSize parses a human size such as "8KB". Empty or "0" means
// unlimited.
func ParseContentSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid content size %q: %w", s, err)
	}
	return int(n), nil
}

// ExtractItems asks the model for the food items in text.
func (t *ToolExtractor) ExtractItems(ctx context.Context, text string) ([]string, error) {
	text = truncate(text, t.maxContentSize)

	resp, err := t.provider.Execute(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt + text},
		},
		MaxTokens:   t.maxTokens,
		Temperature: t.temperature,
		Tools:       []llm.Tool{menuTool},
		ToolChoice:  ToolName,
	})
	if err != nil {
		return nil, err
	}

	call, ok := resp.ToolCall(ToolName)
	if !ok {
		return nil, fmt.Errorf("%s: %w", t.provider.Name(), llm.ErrNoToolCall)
	}
	return parseItems(call.Arguments)
}

func parseItems(arguments string) ([]string, error) {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("malformed tool arguments: %w", err)
	}
	raw, ok := args[ItemsKey]
	if !ok {
		return nil, fmt.Errorf("tool arguments missing %q", ItemsKey)
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("tool argument %q is not a string array: %w", ItemsKey, err)
	}
	return items, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
