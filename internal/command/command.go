// Package command recognizes control commands in user input, separately
// from the conversational path.
//
// Grammar: the input is trimmed and matched case-insensitively against the
// keyword "change language to", which must be followed by whitespace or the
// end of input. The remainder, trimmed and stripped of trailing sentence
// punctuation, is the language name. Anything else is a plain prompt.
package command

import (
	"strings"
	"unicode"
)

// SwitchPrefix introduces a language switch.
const SwitchPrefix = "change language to"

// Kind classifies parsed input.
type Kind int

const (
	// KindPrompt is ordinary conversational input.
	KindPrompt Kind = iota

	// KindSwitchLanguage requests a language switch; Argument is the name.
	KindSwitchLanguage
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSwitchLanguage:
		return "switch_language"
	default:
		return "prompt"
	}
}

// Command is the parsed form of one line of input.
type Command struct {
	Kind Kind

	// Argument is the prompt text, or the requested language name.
	Argument string
}

// Parse classifies input.
func Parse(input string) Command {
	text := strings.TrimSpace(input)
	if len(text) < len(SwitchPrefix) || !strings.EqualFold(text[:len(SwitchPrefix)], SwitchPrefix) {
		return Command{Kind: KindPrompt, Argument: text}
	}
	rest := text[len(SwitchPrefix):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return Command{Kind: KindPrompt, Argument: text}
	}
	name := strings.TrimRight(strings.TrimSpace(rest), ".!?")
	return Command{Kind: KindSwitchLanguage, Argument: strings.TrimSpace(name)}
}
