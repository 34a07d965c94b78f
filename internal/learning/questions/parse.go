package questions

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^#{2,3}\s*第\s*(\d+)\s*題\s*[（(]\s*(.*?)\s*[）)]\s*$`)
	optionRe  = regexp.MustCompile(`^([A-D])\s*[)）.．、]\s*(.*)$`)
	labelRe   = regexp.MustCompile(`^\*\*\s*(正確答案|答案|詳細解析|解析|常見錯誤|技巧提示)\s*[：:]?\s*\*\*\s*[：:]?\s*(.*)$`)
)

type section int

const (
	secStem section = iota
	secOptions
	secAnswer
	secExplanation
	secMistakes
	secTips
)

// Parse extracts question blocks from model output. It is lenient: half-width
// parentheses, "A." style options, a plain **答案：** label and a missing
// trailing separator are all accepted. Text outside any block is ignored.
func Parse(markdown string) []Block {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	var (
		out  []Block
		cur  *Block
		sec  section
		buf  = map[section][]string{}
		done bool
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Stem = joinTrim(buf[secStem])
		cur.Explanation = joinTrim(buf[secExplanation])
		cur.CommonMistakes = joinTrim(buf[secMistakes])
		cur.Tips = joinTrim(buf[secTips])
		out = append(out, *cur)
		cur = nil
		buf = map[section][]string{}
	}

	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			cur = &Block{Number: n, Type: m[2]}
			sec = secStem
			done = false
			continue
		}
		if cur == nil || done {
			continue
		}
		if trimmed == Separator {
			done = true
			flush()
			continue
		}
		if m := labelRe.FindStringSubmatch(trimmed); m != nil {
			rest := strings.TrimSpace(m[2])
			switch m[1] {
			case "正確答案", "答案":
				cur.Answer = rest
				sec = secAnswer
				continue
			case "詳細解析", "解析":
				sec = secExplanation
			case "常見錯誤":
				sec = secMistakes
			case "技巧提示":
				sec = secTips
			}
			if rest != "" {
				buf[sec] = append(buf[sec], rest)
			}
			continue
		}
		if sec == secStem || sec == secOptions {
			if m := optionRe.FindStringSubmatch(trimmed); m != nil {
				cur.Options = append(cur.Options, Option{Letter: m[1], Text: strings.TrimSpace(m[2])})
				sec = secOptions
				continue
			}
			buf[secStem] = append(buf[secStem], line)
			continue
		}
		if sec == secAnswer {
			// Text between the answer and the explanation label belongs to neither.
			if trimmed != "" && cur.Answer == "" {
				cur.Answer = trimmed
			}
			continue
		}
		buf[sec] = append(buf[sec], line)
	}
	flush()
	return out
}

func joinTrim(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
