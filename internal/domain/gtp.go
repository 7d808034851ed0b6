package domain

import (
	"fmt"
	"strings"

	kperrors "katapass/internal/errors"
)

const (
	UndoCommand = "undo\n"
	PassOutput  = "=\nplay pass\n\n"

	MsgConsidering = "KataPass is considering passing...\n"
	MsgPlay        = "KataPass has decided to play.\n"
	MsgPass        = "KataPass has decided to pass.\n"

	passCommandPrefix = "play "
	passCommandSuffix = " pass\n"

	WinrateMarker = "winrate"
)

type Color int

const (
	Black Color = iota
	White
)

func (c Color) String() string {
	if c == White {
		return "W"
	}
	return "B"
}

// Opposite returns the color not currently to move.
func (c Color) Opposite() Color {
	if c == Black {
		return White
	}
	return Black
}

// ParseColor accepts the GTP color spellings: b, w, black, white in any case.
func ParseColor(token string) (Color, error) {
	switch strings.ToLower(token) {
	case "b", "black":
		return Black, nil
	case "w", "white":
		return White, nil
	}
	return Black, fmt.Errorf("%w: %q", kperrors.ErrUnknownColor, token)
}

// PassCommand builds "play <color> pass\n" keeping the token as the controller spelled it.
func PassCommand(colorToken string) string {
	return passCommandPrefix + colorToken + passCommandSuffix
}
