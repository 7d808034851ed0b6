package katapass

import (
	"fmt"
	"strconv"
	"strings"

	"katapass/internal/domain"
	kperrors "katapass/internal/errors"
)

// ExtractWinrate returns the highest value following a "winrate" token anywhere
// in the response, or 0 when there is none. Tokens are split on single spaces.
func ExtractWinrate(response string) (float64, error) {
	best := 0.0
	for _, line := range strings.Split(response, "\n") {
		tokens := strings.Split(strings.TrimSuffix(line, "\r"), " ")
		for i := 0; i+1 < len(tokens); i++ {
			if tokens[i] != domain.WinrateMarker {
				continue
			}
			winrate, err := strconv.ParseFloat(tokens[i+1], 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", kperrors.ErrMalformedWinrate, tokens[i+1])
			}
			if winrate > best {
				best = winrate
			}
			i++
		}
	}
	return best, nil
}
