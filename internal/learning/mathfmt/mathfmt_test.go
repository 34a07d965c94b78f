package mathfmt

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"single bracket with command", `速率 [ v = \frac{d}{t} ] 公尺`, `速率 $v = \frac{d}{t}$ 公尺`},
		{"single bracket bare word", `[ 3 times 4 = 12 ]`, `$3 times 4 = 12$`},
		{"prose bracket untouched", `見 [圖一] 與 [1]`, `見 [圖一] 與 [1]`},
		{"display multiline", "前\n\\[\n  E = mc^2\n\\]\n後", "前\n$$E = mc^2$$\n後"},
		{"inline paren", `面積 \( \pi r^2 \) 平方公分`, `面積 $\pi r^2$ 平方公分`},
		{"unbalanced display passes through", `\[ x + 1`, `\[ x + 1`},
		{"unbalanced bracket passes through", `[ \frac{1}{2}`, `[ \frac{1}{2}`},
		{"empty", "", ""},
		{"already normalized", `$v = \frac{d}{t}$ and $$x$$`, `$v = \frac{d}{t}$ and $$x$$`},
		{"nested after inline", `[ \( \sqrt{2} \) ]`, `[ $\sqrt{2}$ ]`},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("%s: got=%q want=%q", tc.name, got, tc.want)
		}
	}
}

func TestRulesCanBeDisabled(t *testing.T) {
	n := New(Rules{Display: true})
	in := `[ \frac{1}{2} ] \( x \) \[ y \]`
	want := `[ \frac{1}{2} ] \( x \) $$y$$`
	if got := n.Normalize(in); got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

// mathText draws from the tokens the rules care about so random inputs
// actually exercise them.
type mathText string

var fragments = []string{
	`[`, `]`, `\[`, `\]`, `\(`, `\)`, `\frac{1}{2}`, `\sqrt{x}`, `times`, `$`, `$$`,
	` `, "\n", `x`, `=`, `數學`, `\`, `(`, `)`, `a`, `[1]`,
}

func (mathText) Generate(r *rand.Rand, size int) reflect.Value {
	var b strings.Builder
	n := r.Intn(size + 1)
	for i := 0; i < n; i++ {
		b.WriteString(fragments[r.Intn(len(fragments))])
	}
	return reflect.ValueOf(mathText(b.String()))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	f := func(s mathText) bool {
		once := Normalize(string(s))
		return Normalize(once) == once
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000}); err != nil {
		t.Fatal(err)
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	body := "bracket: false\nbracket_commands: [\"sum\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.Bracket || !rules.Display || !rules.Inline {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if len(rules.BracketCommands) != 1 || rules.BracketCommands[0] != "sum" {
		t.Fatalf("unexpected commands: %v", rules.BracketCommands)
	}
	if _, err := LoadRules(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
