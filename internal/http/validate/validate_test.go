package validate

import (
	"strings"
	"testing"
)

type outlineReq struct {
	Subject string `json:"subject" validate:"required,notblank,max=100"`
	Grade   string `json:"grade" validate:"required,notblank,max=50"`
	Unit    string `json:"unit" validate:"required,notblank,max=200"`
}

func TestStruct(t *testing.T) {
	if err := Struct(outlineReq{Subject: "數學", Grade: "三年級", Unit: "分數"}); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	err := Struct(outlineReq{Grade: "   ", Unit: strings.Repeat("長", 201)})
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"科目為必填欄位", "年級不能只包含空白", "單元長度不能超過200個字元"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}
