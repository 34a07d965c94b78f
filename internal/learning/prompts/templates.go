package prompts

const (
	temperature    = 0.7
	longMaxTokens  = 4096
	shortMaxTokens = 2048
)

// Shared formatting requirements quoted by the chapter prompts.
const mathRules = `**【重要】數學公式格式規範**：
   - ✅ 正確：行內公式用單個 $ 符號，例如 $v = \frac{d}{t}$
   - ✅ 正確：塊級公式用雙 $$ 符號，例如 $$E = mc^2$$
   - ❌ 錯誤：絕對不要使用方括號 [ ] 包裹公式
   - ❌ 錯誤：不要寫成 [ v = \frac{d}{t} ]`

const tableRules = `**表格請使用標準 Markdown 表格格式**，例如：
   | 項目 | 說明 |
   |------|------|
   | 內容1 | 說明1 |`

func registerAll() {
	RegisterSpec(Spec{
		Name:        PromptOutline,
		Version:     1,
		Temperature: temperature,
		MaxTokens:   longMaxTokens,
		System:      `你是一位專業的教育內容規劃師。`,
		User: `請為以下教學需求生成一個結構化的教學大綱。

科目：{{.Subject}}
年級：{{.Grade}}
單元：{{.Unit}}

請以標準的 JSON 格式輸出大綱，只輸出JSON，不要包含任何其他文字或markdown標記。

格式如下（請嚴格遵守此格式）：
{
  "title": "單元標題",
  "objectives": ["學習目標1", "學習目標2", "學習目標3"],
  "chapters": [
    {
      "chapter_number": 1,
      "title": "章節標題",
      "topics": ["主題1", "主題2", "主題3"],
      "description": "本章節的簡短描述"
    }
  ]
}

要求：
1. 大綱應該循序漸進，從基礎到進階
2. 考慮該年級學生的認知能力
3. 確保邏輯連貫性
4. 包含 3-5 個主要章節
5. 每個章節包含 2-4 個主題
6. 只輸出有效的 JSON，不要有額外的文字說明`,
		Validators: []Validator{requireScope},
	})

	RegisterSpec(Spec{
		Name:        PromptChapterContent,
		Version:     1,
		Temperature: temperature,
		MaxTokens:   shortMaxTokens,
		System:      `你是一位經驗豐富的{{.Subject}}老師。`,
		User: `請為{{.Grade}}學生編寫以下章節的詳細教材內容。

單元：{{.Unit}}
章節：第{{.ChapterNumber}}章 - {{.ChapterTitle}}

本章節主題：
{{.TopicsMD}}

完整大綱參考：
{{.OutlineText}}

要求：
1. 使用淺顯易懂的語言，適合{{.Grade}}學生的理解程度
2. 提供生活化的例子和情境
3. 對於數學/理化科目，請清楚說明公式和計算步驟
4. ` + mathRules + `
5. ` + tableRules + `
6. 適當使用圖表說明（用文字描述圖表內容）
7. 每個概念後面提供簡單的範例
8. 使用 Markdown 格式輸出，包含適當的標題層級（##, ###）
9. 本章節內容應該完整且詳細，約500-800字

請生成完整的章節內容：`,
		Validators: []Validator{requireScope, requireChapter},
	})

	RegisterSpec(Spec{
		Name:        PromptChapterQuestions,
		Version:     1,
		Temperature: temperature,
		MaxTokens:   shortMaxTokens,
		System:      `你是一位專業的題目設計師。`,
		User: `請根據以下章節內容，為{{.Grade}}學生設計練習題。

科目：{{.Subject}}
單元：{{.Unit}}
章節：第{{.ChapterNumber}}章 - {{.ChapterTitle}}

章節內容：
{{.ChapterContent}}

請以清晰的 Markdown 格式輸出 3-5 題練習題，**嚴格遵守以下格式**：

{{questionExample}}

**重要格式要求：**
{{questionRules}}

要求：
1. 設計 3-5 題針對本章節的練習題
2. 題目難度應符合{{.Grade}}程度
3. 涵蓋本章節的主要概念
4. 對於數學題目，確保數值準確且合理
5. ` + mathRules + `
6. **表格請使用標準 Markdown 表格格式**
7. 提供詳細的解題步驟和說明
8. 題型多樣化（選擇、填充、計算、問答等）`,
		Validators: []Validator{requireScope, requireChapter, require("chapter content", func(in Input) string { return in.ChapterContent })},
	})

	RegisterSpec(Spec{
		Name:        PromptContentFallback,
		Version:     1,
		Temperature: temperature,
		MaxTokens:   longMaxTokens,
		System:      `你是一位經驗豐富的{{.Subject}}老師。`,
		User: `請根據以下大綱，為{{.Grade}}學生編寫詳細的教材內容。

單元：{{.Unit}}

大綱：
{{.OutlineText}}

要求：
1. 使用淺顯易懂的語言，適合{{.Grade}}學生的理解程度
2. 提供生活化的例子和情境
3. 對於數學/理化科目，請清楚說明公式和計算步驟
4. 適當使用圖表說明（用文字描述圖表內容）
5. 每個概念後面提供簡單的範例
6. 使用清晰的段落和標題組織內容
7. 用 Markdown 格式輸出，包含適當的標題層級（#, ##, ###）和條列

請生成完整且結構清晰的教材內容，確保學生能夠理解並應用所學知識。`,
		Validators: []Validator{requireScope},
	})

	RegisterSpec(Spec{
		Name:        PromptQuestionsFromContent,
		Version:     1,
		Temperature: temperature,
		MaxTokens:   longMaxTokens,
		System:      `你是一位專業的題目設計師。`,
		User: `請根據以下教材內容，為{{.Grade}}學生設計練習題。

科目：{{.Subject}}
單元：{{.Unit}}

教材內容：
{{.ContentText}}

請以清晰的 Markdown 格式輸出題目，**嚴格遵守以下格式**：

{{questionExample}}

**重要格式要求：**
{{questionRules}}

要求：
1. 設計 5-8 題練習題
2. 題目難度應符合{{.Grade}}程度
3. 涵蓋教材中的主要概念
4. 對於數學題目，確保數值準確且合理
5. 提供詳細的解題步驟和說明
6. 題型多樣化（選擇、填充、計算、問答等）`,
		Validators: []Validator{requireScope, require("content", func(in Input) string { return in.ContentText })},
	})
}
