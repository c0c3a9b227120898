package router

import "strings"

// TaskType is a closed category describing the kind of content being
// requested. It is used as a classification label and a routing key.
type TaskType string

const (
	TaskTextGeneration   TaskType = "text_generation"
	TaskCodeGeneration   TaskType = "code_generation"
	TaskImageGeneration  TaskType = "image_generation"
	TaskSummarization    TaskType = "summarization"
	TaskCreativeWriting  TaskType = "creative_writing"
	TaskTechnicalWriting TaskType = "technical_writing"
	TaskChat             TaskType = "chat"
	TaskAnalysis         TaskType = "analysis"
)

// ParseTaskType maps a wire string to a TaskType. Unknown values report
// false.
func ParseTaskType(s string) (TaskType, bool) {
	switch t := TaskType(strings.ToLower(strings.TrimSpace(s))); t {
	case TaskTextGeneration, TaskCodeGeneration, TaskImageGeneration,
		TaskSummarization, TaskCreativeWriting, TaskTechnicalWriting,
		TaskChat, TaskAnalysis:
		return t, true
	}
	return "", false
}

// classifyRules are evaluated in priority order; a prompt matching several
// categories is classified by the first matching rule. The ordering is the
// tie-break policy: "explain this code" hits code_generation before
// technical_writing because of it. This is a coarse keyword heuristic, not
// a guaranteed-correct classifier.
var classifyRules = []struct {
	task     TaskType
	keywords []string
}{
	{TaskCodeGeneration, []string{"code", "function", "class", "debug", "python", "javascript", "programming"}},
	{TaskImageGeneration, []string{"image", "picture", "photo", "generate image", "create image"}},
	{TaskSummarization, []string{"summarize", "summary", "tldr", "brief", "key points"}},
	{TaskCreativeWriting, []string{"story", "poem", "creative", "write a", "compose"}},
	{TaskTechnicalWriting, []string{"documentation", "technical", "explain", "how to", "tutorial"}},
	{TaskAnalysis, []string{"analyze", "compare", "evaluate", "assess", "review"}},
}

// Classify infers the task type for a prompt. It is pure, never fails, and
// defaults to chat for conversational prompts that match nothing else.
func Classify(prompt string) TaskType {
	lower := strings.ToLower(prompt)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.task
			}
		}
	}
	return TaskChat
}
