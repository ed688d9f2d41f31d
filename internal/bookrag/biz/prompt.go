package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/bookrag/internal/bookrag/store"
	"github.com/kart-io/bookrag/internal/pkg/rag/textutil"
	"github.com/kart-io/bookrag/pkg/errors"
)

// 用户可见的固定回答。
const (
	// FallbackPhrase 上下文中找不到答案时模型应输出的句子。
	FallbackPhrase = "I don't know based on the book."
	// NotFoundAnswer 检索结果为空时的回答。
	NotFoundAnswer = "I couldn't find anything about that in the book."
	// ValidationAnswer 问题为空时的回答。
	ValidationAnswer = "Please type a question first."
	// UpstreamErrorAnswer 上游调用失败时的回答。
	UpstreamErrorAnswer = "Sorry, the AI service is not responding right now. Please try again in a moment."
	// ConfigurationErrorAnswer 服务缺少配置时的回答。
	ConfigurationErrorAnswer = "Sorry, the assistant is not configured yet. Please contact the site owner."

	// TranslationFailedAnswer 翻译失败时的回答。
	TranslationFailedAnswer = "Translation Failed"
)

// Personalize 硬件目标。
const (
	HardwareCPU = "cpu"
	HardwareGPU = "gpu"
)

// 改写指令。
const (
	cpuInstruction = "Focus on Cloud/CPU simulation."
	gpuInstruction = "Focus on NVIDIA Isaac Sim & RTX."
)

const contextSeparator = "\n\n"

const answerTemplate = `You are the study assistant of the Physical AI book.
Answer the question using only the context below.
If the answer cannot be found in the context, reply exactly: "%s"

Context:
%s

Question: %s
Answer:`

// AssembleContext 按检索顺序用空行拼接块文本，总长度不超过 maxChars 个字符。
// 超出预算时从排名最低的结果开始丢弃；只剩第一条且仍超出时截断它。
// truncated 表示是否有内容被丢弃或截断。
func AssembleContext(hits []store.RetrievalHit, maxChars int) (text string, truncated bool) {
	var b strings.Builder
	used := 0
	for _, hit := range hits {
		chunk := hit.ChunkText
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		n := textutil.RuneLen(chunk)
		sep := 0
		if used > 0 {
			sep = textutil.RuneLen(contextSeparator)
		}

		if maxChars > 0 && used+sep+n > maxChars {
			if used == 0 {
				b.WriteString(textutil.TruncateString(chunk, maxChars))
			}
			return b.String(), true
		}

		if sep > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(chunk)
		used += sep + n
	}
	return b.String(), false
}

// BuildAnswerPrompt 渲染问答提示词。
func BuildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(answerTemplate, FallbackPhrase, context, question)
}

// BuildTranslatePrompt 渲染乌尔都语翻译提示词。
func BuildTranslatePrompt(text string) string {
	return "Translate to Urdu:\n" + text
}

// BuildPersonalizePrompt 按目标硬件渲染改写提示词。hardware 只能是 cpu 或 gpu。
func BuildPersonalizePrompt(text, hardware string) (string, error) {
	var instruction string
	switch strings.ToLower(strings.TrimSpace(hardware)) {
	case HardwareCPU:
		instruction = cpuInstruction
	case HardwareGPU:
		instruction = gpuInstruction
	default:
		return "", errors.ErrValidation.WithMessagef("hardware must be %q or %q, got %q", HardwareCPU, HardwareGPU, hardware)
	}
	return fmt.Sprintf("Rewrite this content. %s\nOriginal:\n%s", instruction, text), nil
}

// ErrorAnswer 把查询错误转换为用户可见的回答。
func ErrorAnswer(err error) string {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return ValidationAnswer
	case errors.KindConfiguration:
		return ConfigurationErrorAnswer
	default:
		return UpstreamErrorAnswer
	}
}
