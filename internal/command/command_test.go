package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"change language to thai", Command{KindSwitchLanguage, "thai"}},
		{"Change Language To French", Command{KindSwitchLanguage, "French"}},
		{"  change language to   chinese (mandarin)  ", Command{KindSwitchLanguage, "chinese (mandarin)"}},
		{"change language to Thai.", Command{KindSwitchLanguage, "Thai"}},
		{"change language to ", Command{KindSwitchLanguage, ""}},
		{"change language to", Command{KindSwitchLanguage, ""}},
		{"change language tofu", Command{KindPrompt, "change language tofu"}},
		{"change language to\tgerman", Command{KindSwitchLanguage, "german"}},
		{"please change language to thai", Command{KindPrompt, "please change language to thai"}},
		{"  what is on my screen? ", Command{KindPrompt, "what is on my screen?"}},
		{"", Command{KindPrompt, ""}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindSwitchLanguage.String() != "switch_language" || KindPrompt.String() != "prompt" {
		t.Error("unexpected kind names")
	}
}
