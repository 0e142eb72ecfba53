// Package ragstory writes Urdu stories grounded on a retrieved exemplar.
// Each request is embedded, matched against a pre-embedded prompt corpus,
// and the closest exemplar story is handed to the model as a style sample.
package ragstory

import (
	"context"
	"fmt"
	"strings"

	"ashserver/internal/llm"
)

// Urdu instructions for the story model. The retrieved exemplar is style
// context only; the story must follow the user's request even when no
// exemplar matches.
const promptTemplate = `
مندرجہ ذیل صارف کی درخواست کے مطابق اردو زبان میں ایک مکمل، دلچسپ اور اخلاقی کہانی تخلیق کریں۔

ہدایات:
- کہانی اردو زبان میں ہونی چاہیے، اور زبان میں روانی، فصاحت و بلاغت ہو۔
- سیاق و سباق میں دی گئی کہانی کو اندازِ بیان، اندازِ تحریر اور کہانی کے بہاؤ کے لحاظ سے بطور نمونہ استعمال کریں۔
- اگر سیاق و سباق دستیاب نہ ہو تو بھی صارف کی درخواست کے مطابق کہانی لازمی طور پر تخلیق کریں، اور کہانی صرف اردو زبان میں ہونی چاہیے۔
- اگر صارف کی درخواست (query) انگریزی یا رومن اردو میں ہو تو سب سے پہلے اس کو مہذب اور معیاری اردو میں ترجمہ کریں، پھر اسی ترجمہ شدہ اردو درخواست کے مطابق کہانی تخلیق کریں۔
- کہانی ہر حال میں اخلاقی اقدار کے مطابق ہونی چاہیے؛ کسی قسم کی فحش، غیر اخلاقی یا غیر مہذب زبان کا استعمال سختی سے منع ہے۔
- اگر صارف کی درخواست میں کوئی غیر اخلاقی، فحش یا غیر مہذب مواد موجود ہو تو کہانی تخلیق کرنے کے بجائے شائستگی سے یہ جواب دیا جائے:
  "آپ کی دی گئی درخواست غیر اخلاقی ہے۔ براہ کرم کوئی نیا اور موزوں موضوع فراہم کریں۔"
- کہانی میں کسی قسم کے تعارفی جملے شامل نہ ہوں۔
- کہانی کا ایک خوبصورت اور موزوں عنوان ضرور ہو، جو سب سے پہلے دیا جائے، اس کے فوراً بعد مکمل کہانی تحریر کی جائے۔
- اسی طرز کو برقرار رکھتے ہوئے صارف کی دی گئی درخواست کے مطابق نئی کہانی بنائیں۔

صارف کی درخواست:
%s

انداز و اسلوب کی مثال (سیاق و سباق):
%s
`

// Generator produces exemplar-grounded Urdu stories.
type Generator struct {
	embedder  llm.Embedder
	generator llm.TextGenerator
	table     *Table
}

// NewGenerator wires the story generator.
func NewGenerator(embedder llm.Embedder, generator llm.TextGenerator, table *Table) *Generator {
	return &Generator{embedder: embedder, generator: generator, table: table}
}

// Generate embeds the query, retrieves the closest exemplar, and asks the
// model for a story in its style.
func (g *Generator) Generate(ctx context.Context, query string) (string, error) {
	queryVec, err := g.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("ragstory: embed query: %w", err)
	}
	exemplar := g.table.Nearest(queryVec)

	prompt := fmt.Sprintf(strings.TrimSpace(promptTemplate), query, exemplar)
	story, err := g.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("ragstory: generate: %w", err)
	}
	return story, nil
}
