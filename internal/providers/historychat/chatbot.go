// Package historychat answers questions about Urdu history. Every question
// is grounded with live web search results and the running conversation
// buffer before it reaches the model.
package historychat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ashserver/internal/llm"
	"ashserver/internal/providers/websearch"
)

// Urdu instructions for the historian model. Off-topic questions get a
// polite redirect instead of an answer.
const promptTemplate = `
آپ ایک ماہر اردو محقق، مؤرخ، اور علمی مصنف ہیں۔ آپ کا مقصد یہ ہے کہ صارف کے سوال کا تفصیلی، مستند اور مدلل جواب اردو زبان میں فراہم کریں۔

سب سے پہلے سوال کا تجزیہ کریں:
- اگر سوال اردو تاریخ یا اردو زبان کی تاریخ سے متعلق ہے تو آگے بڑھ کر مکمل جواب دیں۔
- اگر سوال اردو تاریخ یا اردو زبان کی تاریخ سے متعلق نہیں ہے تو مہذب انداز میں جواب دیں کہ براہ کرم اردو تاریخ یا اردو زبان کی تاریخ سے متعلق سوال پوچھیں۔

مندرجہ ذیل معلومات کا بغور مطالعہ کریں اور ان کی روشنی میں جامع اور واضح جواب فراہم کریں (اگر سوال متعلقہ ہو):

سیاق و سباق (Context):
%s

ویب تلاش کے نتائج (Web Search Results):
%s

گفتگو کی سابقہ تاریخ (Conversation History):
%s

**اگر گفتگو کی سابقہ تاریخ (chat_history) دستیاب ہے تو اس کا مطلب ہے کہ یہ جاری گفتگو کا حصہ ہے۔ ایسے میں سوالات کا تعلق سابقہ گفتگو میں زیر بحث آنے والے افراد یا چیزوں سے ہو سکتا ہے۔ براہ کرم سابقہ گفتگو کو مدنظر رکھتے ہوئے جواب فراہم کریں۔**

اب صارف کے سوال کا تجزیہ کریں اور مناسب ردعمل دیں:

سوال: %s

جواب (صرف اردو میں دیں):
`

// defaultMemoryLimit caps the number of remembered exchanges so the prompt
// stays within the model's context window.
const defaultMemoryLimit = 20

type exchange struct {
	question string
	answer   string
}

// Chatbot is the stateful Urdu history assistant.
type Chatbot struct {
	searcher  websearch.Searcher
	generator llm.TextGenerator

	mu          sync.Mutex
	memory      []exchange
	memoryLimit int
}

// New wires the chatbot.
func New(searcher websearch.Searcher, generator llm.TextGenerator) *Chatbot {
	return &Chatbot{
		searcher:    searcher,
		generator:   generator,
		memoryLimit: defaultMemoryLimit,
	}
}

// Chat answers one question. Search failures degrade to an empty result
// block; the model still answers from its own knowledge.
func (c *Chatbot) Chat(ctx context.Context, question string) (string, error) {
	results, err := c.searcher.Search(ctx, question)
	if err != nil {
		results = fmt.Sprintf("Web search failed: %v", err)
	}

	prompt := fmt.Sprintf(strings.TrimSpace(promptTemplate), "", results, c.historyText(), question)
	answer, err := c.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("historychat: generate: %w", err)
	}

	c.remember(question, answer)
	return answer, nil
}

func (c *Chatbot) historyText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.memory) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, ex := range c.memory {
		fmt.Fprintf(&sb, "Human: %s\nAI: %s\n", ex.question, ex.answer)
	}
	return sb.String()
}

func (c *Chatbot) remember(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = append(c.memory, exchange{question: question, answer: answer})
	if len(c.memory) > c.memoryLimit {
		c.memory = c.memory[len(c.memory)-c.memoryLimit:]
	}
}
