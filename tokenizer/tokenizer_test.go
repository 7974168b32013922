package tokenizer

import (
	"os"
	"slices"
	"sync"
	"testing"
)

func TestSplitTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"GPT-4o rocks!", []string{"GPT", "-", "4o", "rocks", "!"}},
		{"知识图谱 RAG", []string{"知", "识", "图", "谱", "RAG"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := splitTokens(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("splitTokens(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSimpleTokenizer(t *testing.T) {
	tok := NewSimpleTokenizer()

	ids := tok.Encode("a b a")
	if len(ids) != 3 || ids[0] != ids[2] || ids[0] == ids[1] {
		t.Errorf("Encode ids = %v", ids)
	}
	if got := tok.DecodeIds(ids); got != "aba" {
		t.Errorf("DecodeIds = %q", got)
	}
	if got := tok.CountTokens("one, two"); got != 3 {
		t.Errorf("CountTokens = %d", got)
	}
}

func TestSimpleTokenizerConcurrent(t *testing.T) {
	tok := NewSimpleTokenizer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tok.DecodeIds(tok.Encode("shared words here"))
			}
		}()
	}
	wg.Wait()
	if got := len(tok.Encode("shared words here")); got != 3 {
		t.Errorf("token count = %d", got)
	}
}

func TestNew(t *testing.T) {
	tk, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := tk.(*SimpleTokenizer); !ok {
		t.Errorf("expected SimpleTokenizer, got %T", tk)
	}
	if _, err := New("definitely-not-an-encoding"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestTiktoken(t *testing.T) {
	// The BPE ranks are downloaded on first use.
	if os.Getenv("RAGDECK_TEST_TIKTOKEN") == "" {
		t.Skip("RAGDECK_TEST_TIKTOKEN not set")
	}
	tk, err := NewTiktoken("cl100k_base")
	if err != nil {
		t.Fatalf("NewTiktoken: %v", err)
	}
	ids := tk.Encode("hello world")
	if tk.CountTokens("hello world") != len(ids) || len(ids) == 0 {
		t.Errorf("ids = %v", ids)
	}
	if got := tk.DecodeIds(ids); got != "hello world" {
		t.Errorf("DecodeIds = %q", got)
	}
}
