package telegramutil

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain_identifier",
			in:   "new_york",
			want: "new\\_york",
		},
		{
			name: "special_chars",
			in:   "_*[]()~`>#+-=|{}.!\\",
			want: "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!\\\\",
		},
		{
			name: "non_specials",
			in:   "hello world",
			want: "hello world",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EscapeMarkdownV2(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeUnderscores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "identifier",
			in:   "model gpt_4o_mini",
			want: "model gpt\\_4o\\_mini",
		},
		{
			name: "inline_code_untouched",
			in:   "use `gpt_4o_mini` here",
			want: "use `gpt_4o_mini` here",
		},
		{
			name: "fenced_block_untouched",
			in:   "```\nsnake_case\n```",
			want: "```\nsnake_case\n```",
		},
		{
			name: "already_escaped",
			in:   "new\\_york",
			want: "new\\_york",
		},
		{
			name: "no_underscores",
			in:   "plain text",
			want: "plain text",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EscapeUnderscores(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
