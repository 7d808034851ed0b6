package katapass

import (
	"context"
	"fmt"
	"strings"

	"katapass/internal/domain"
	kperrors "katapass/internal/errors"
)

type Evaluation struct {
	// Winrate estimates the mover's chances if they pass: one minus the
	// opponent's best winrate when the opponent moves instead.
	Winrate     float64
	Color       domain.Color
	ColorToken  string
	PassCommand string
}

// OpponentCommand rewrites the color argument of a move-generation line to the
// opposite color. Other tokens are kept.
func OpponentCommand(line string) (string, domain.Color, string, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return "", domain.Black, "", fmt.Errorf("%w: %q", kperrors.ErrMissingColor, strings.TrimSpace(line))
	}
	colorToken := tokens[1]
	color, err := domain.ParseColor(colorToken)
	if err != nil {
		return "", domain.Black, "", err
	}
	tokens[1] = color.Opposite().String()
	return strings.Join(tokens, " ") + "\n", color, colorToken, nil
}

// evaluate simulates the opponent moving in the mover's place, reads the
// opponent's best winrate, then undoes the simulated move.
func (b *Broker) evaluate(ctx context.Context, line string) (Evaluation, error) {
	command, color, colorToken, err := OpponentCommand(line)
	if err != nil {
		return Evaluation{}, err
	}

	response, err := b.exchange(ctx, command)
	if err != nil {
		return Evaluation{}, err
	}
	opponentBest, err := ExtractWinrate(response)
	if err != nil {
		return Evaluation{}, err
	}

	if _, err := b.exchange(ctx, domain.UndoCommand); err != nil {
		return Evaluation{}, err
	}

	return Evaluation{
		Winrate:     1.0 - opponentBest,
		Color:       color,
		ColorToken:  colorToken,
		PassCommand: domain.PassCommand(colorToken),
	}, nil
}
