package main

import (
	"testing"

	"github.com/ildar2244/advent4/chat"
)

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantCmd  string
		wantRest string
	}{
		{in: "/ask what is 2+2?", wantCmd: "/ask", wantRest: "what is 2+2?"},
		{in: "/start", wantCmd: "/start", wantRest: ""},
		{in: "  /json  ", wantCmd: "/json", wantRest: ""},
		{in: "", wantCmd: "", wantRest: ""},
		{in: "plain text", wantCmd: "plain", wantRest: "text"},
	}
	for _, tt := range tests {
		gotCmd, gotRest := splitCommand(tt.in)
		if gotCmd != tt.wantCmd || gotRest != tt.wantRest {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", tt.in, gotCmd, gotRest, tt.wantCmd, tt.wantRest)
		}
	}
}

func TestNormalizeSlashCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "/start", want: "/start"},
		{in: "/START", want: "/start"},
		{in: "/json@MyProxyBot", want: "/json"},
		{in: "hello", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := normalizeSlashCommand(tt.in); got != tt.want {
			t.Errorf("normalizeSlashCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInlineKeyboardOneButtonPerRow(t *testing.T) {
	t.Parallel()

	p := chat.Payload{
		Text: "pick",
		Controls: []chat.Control{
			{Label: "GPT-4o Mini", CallbackID: "llm_gpt"},
			{Label: "Claude 3.5 Haiku", CallbackID: "llm_claude"},
		},
	}
	markup := inlineKeyboard(p)
	if markup == nil {
		t.Fatal("expected a keyboard")
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.InlineKeyboard))
	}
	for i, row := range markup.InlineKeyboard {
		if len(row) != 1 {
			t.Fatalf("row %d has %d buttons, want 1", i, len(row))
		}
	}
	if markup.InlineKeyboard[0][0].CallbackData != "llm_gpt" {
		t.Fatalf("first button = %+v", markup.InlineKeyboard[0][0])
	}

	if inlineKeyboard(chat.Payload{Text: "no controls"}) != nil {
		t.Fatal("payload without controls should have no keyboard")
	}
}
