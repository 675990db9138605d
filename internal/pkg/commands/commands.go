package commands

import "strings"

// Kind identifies a recognized chat command.
type Kind int

const (
	KindNone Kind = iota
	KindHelp
	KindStatus
	KindPay
	KindStop
	KindPause
	KindStart
	KindDelete
	KindFeedback
	KindLang
)

// Command is the parsed form of one inbound message. For KindLang the Arg
// field carries the requested language code, lower-cased but not yet
// validated against the supported set.
type Command struct {
	Kind Kind
	Arg  string
}

// IsCommand reports whether the message matched any command at all.
func (c Command) IsCommand() bool {
	return c.Kind != KindNone
}

// trailingPunctuation is stripped during normalization so that "STOP!" and
// "stop." still opt the user out.
const trailingPunctuation = ".,!?;:"

// Normalize prepares inbound text for command matching: trim, collapse
// inner whitespace runs to single spaces, uppercase, strip trailing
// punctuation.
func Normalize(text string) string {
	fields := strings.Fields(text)
	norm := strings.ToUpper(strings.Join(fields, " "))
	return strings.TrimRight(norm, trailingPunctuation)
}

// Parse matches normalized text against the fixed command set. Anything
// that does not match returns KindNone and falls through to the
// summarization pipeline.
func Parse(text string) Command {
	norm := Normalize(text)

	switch norm {
	case "HELP":
		return Command{Kind: KindHelp}
	case "STATUS":
		return Command{Kind: KindStatus}
	case "PAY", "UPGRADE":
		return Command{Kind: KindPay}
	case "STOP":
		return Command{Kind: KindStop}
	case "PAUSE":
		return Command{Kind: KindPause}
	case "START":
		return Command{Kind: KindStart}
	case "DELETE":
		return Command{Kind: KindDelete}
	case "FEEDBACK":
		return Command{Kind: KindFeedback}
	}

	if arg, ok := strings.CutPrefix(norm, "LANG "); ok {
		return Command{Kind: KindLang, Arg: strings.ToLower(strings.TrimSpace(arg))}
	}
	if norm == "LANG" {
		// Bare LANG counts as the command with a missing argument so the
		// user gets the usage reply instead of a summary of the word.
		return Command{Kind: KindLang}
	}

	return Command{Kind: KindNone}
}

// IsPriority reports whether the command must run regardless of consent
// state. Opt-out and account queries always work, even before the privacy
// notice went out.
func IsPriority(c Command) bool {
	switch c.Kind {
	case KindStop, KindPause, KindStart, KindDelete, KindHelp, KindStatus, KindPay:
		return true
	}
	return false
}
