package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contentstudio/aigateway/router"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		prompt string
		want   router.TaskType
	}{
		{"write a function to sort a list", router.TaskCodeGeneration},
		{"debug my python script", router.TaskCodeGeneration},
		{"generate image of a sunset", router.TaskImageGeneration},
		{"summarize this article", router.TaskSummarization},
		{"give me the tldr", router.TaskSummarization},
		{"write a poem about the sea", router.TaskCreativeWriting},
		{"how to set up a home network", router.TaskTechnicalWriting},
		{"compare these two proposals", router.TaskAnalysis},
		{"hello there", router.TaskChat},
		{"", router.TaskChat},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, router.Classify(c.prompt), "prompt %q", c.prompt)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Matches both code_generation ("code") and technical_writing
	// ("explain"); the earlier rule wins.
	assert.Equal(t, router.TaskCodeGeneration, router.Classify("explain this code"))

	// "write a" is creative, but "function" matches the earlier code rule.
	assert.Equal(t, router.TaskCodeGeneration, router.Classify("write a function"))
}

func TestParseTaskType(t *testing.T) {
	got, ok := router.ParseTaskType("code_generation")
	assert.True(t, ok)
	assert.Equal(t, router.TaskCodeGeneration, got)

	got, ok = router.ParseTaskType(" Chat ")
	assert.True(t, ok)
	assert.Equal(t, router.TaskChat, got)

	_, ok = router.ParseTaskType("interpretive_dance")
	assert.False(t, ok)
}
