// Package questions defines the markdown question-block format the prompts ask
// models to produce, and parses it back into structured blocks.
//
// Grammar v1, one block per question:
//
//	## 第{n}題（{type}）
//	{stem lines}
//
//	A) {option}            zero or four lines, letters A-D
//	**正確答案：** {letter or short value}
//
//	**詳細解析：**
//	{explanation lines}
//
//	**常見錯誤：** / **技巧提示：**   optional sections
//	---
package questions

import (
	"fmt"
	"strings"
)

const Version = "v1"

const (
	Separator        = "---"
	AnswerLabel      = "**正確答案：**"
	ExplanationLabel = "**詳細解析：**"
	MistakesLabel    = "**常見錯誤：**"
	TipsLabel        = "**技巧提示：**"
	OptionLetters    = "ABCD"
)

const (
	TypeChoice = "選擇題"
	TypeCalc   = "計算題"
	TypeFill   = "填充題"
	TypeEssay  = "問答題"
)

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type Block struct {
	Number         int      `json:"number"`
	Type           string   `json:"type"`
	Stem           string   `json:"stem"`
	Options        []Option `json:"options,omitempty"`
	Answer         string   `json:"answer"`
	Explanation    string   `json:"explanation"`
	CommonMistakes string   `json:"common_mistakes,omitempty"`
	Tips           string   `json:"tips,omitempty"`
}

func Heading(n int, typ string) string {
	return fmt.Sprintf("## 第%d題（%s）", n, typ)
}

func OptionLine(letter, text string) string {
	return letter + ") " + text
}

// Format renders blocks in canonical form. Parse(Format(b)) returns b for
// blocks whose text fields are trimmed and do not themselves contain grammar
// tokens at line starts.
func Format(blocks []Block) string {
	var b strings.Builder
	for i, q := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Heading(q.Number, q.Type))
		b.WriteString("\n")
		if q.Stem != "" {
			b.WriteString(q.Stem)
			b.WriteString("\n")
		}
		if len(q.Options) > 0 {
			b.WriteString("\n")
			for _, o := range q.Options {
				b.WriteString(OptionLine(o.Letter, o.Text))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(AnswerLabel + " " + q.Answer + "\n")
		b.WriteString("\n")
		b.WriteString(ExplanationLabel + "\n")
		if q.Explanation != "" {
			b.WriteString(q.Explanation + "\n")
		}
		writeSection(&b, MistakesLabel, q.CommonMistakes)
		writeSection(&b, TipsLabel, q.Tips)
		b.WriteString("\n" + Separator + "\n")
	}
	return b.String()
}

func writeSection(b *strings.Builder, label, text string) {
	if text == "" {
		return
	}
	b.WriteString("\n" + label + "\n" + text + "\n")
}

// Example is the sample embedded in prompts so the format has a single source.
func Example() string {
	return Format([]Block{
		{
			Number: 1,
			Type:   TypeChoice,
			Stem:   "題目內容描述",
			Options: []Option{
				{Letter: "A", Text: "選項A的內容"},
				{Letter: "B", Text: "選項B的內容"},
				{Letter: "C", Text: "選項C的內容"},
				{Letter: "D", Text: "選項D的內容"},
			},
			Answer:      "B",
			Explanation: "詳細的解題步驟和說明",
		},
		{
			Number: 2,
			Type:   TypeCalc,
			Stem:   "計算題內容",
			Options: []Option{
				{Letter: "A", Text: "答案選項1"},
				{Letter: "B", Text: "答案選項2"},
				{Letter: "C", Text: "答案選項3"},
				{Letter: "D", Text: "答案選項4"},
			},
			Answer:      "A",
			Explanation: "計算過程和步驟",
		},
	})
}

// Rules lists the format requirements quoted in prompts.
func Rules() string {
	lines := []string{
		"1. 每題必須以 ## 第X題（題型） 開始",
		"2. 題型必須用中文全形括號：（" + TypeChoice + "）、（" + TypeCalc + "）、（" + TypeFill + "）",
		"3. 選項必須用 A) B) C) D) 格式，後面加空格",
		"4. 每個選項獨立一行",
		"5. 正確答案必須寫 " + AnswerLabel + " 然後空格加答案（只寫選項字母，如 A 或 B）",
		"6. 詳細解析必須寫 " + ExplanationLabel + " 然後換行寫內容",
		"7. 每題結束必須用 " + Separator + " 分隔",
	}
	return strings.Join(lines, "\n")
}
