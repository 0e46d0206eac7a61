// Package scoring applies bulk score uploads to a score store.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingTargetPath = errors.New("no communities-page path entered")
	ErrMissingRulePath   = errors.New("no scoring rule path entered")
	ErrMalformedInput    = errors.New("malformed score input")
)

// Scorer applies one score to one user.
type Scorer interface {
	SaveScore(ctx context.Context, userID, targetPath, rulePath string, score int64) error
}

// Result summarizes one import.
type Result struct {
	Applied    int    `json:"applied"`
	TargetPath string `json:"target_path"`
	RulePath   string `json:"rule_path"`
}

// Importer drains a JSON object of user id to score and saves each entry.
type Importer struct {
	scorer Scorer
	logger *slog.Logger
}

// NewImporter builds an Importer. A nil logger uses slog.Default().
func NewImporter(scorer Scorer, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{scorer: scorer, logger: logger}
}

// Import reads {"user": score, ...} from r and saves every entry in input
// order. The first malformed value or save failure aborts the import;
// scores saved before the failure stay saved.
func (im *Importer) Import(ctx context.Context, r io.Reader, targetPath, rulePath string) (Result, error) {
	result := Result{TargetPath: strings.TrimSpace(targetPath), RulePath: strings.TrimSpace(rulePath)}
	if result.TargetPath == "" {
		return result, ErrMissingTargetPath
	}
	if result.RulePath == "" {
		return result, ErrMissingRulePath
	}
	if im == nil || im.scorer == nil {
		return result, fmt.Errorf("scorer is not configured")
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return result, fmt.Errorf("%w: expected a start object token, got %s", ErrMalformedInput, describeToken(tok))
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		keyTok, err := dec.Token()
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		userID, ok := keyTok.(string)
		if !ok {
			return result, fmt.Errorf("%w: expected a field name, got %s", ErrMalformedInput, describeToken(keyTok))
		}

		valueTok, err := dec.Token()
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		score, err := scoreValue(valueTok)
		if err != nil {
			return result, fmt.Errorf("%w: score for %q: %v", ErrMalformedInput, userID, err)
		}

		if err := im.scorer.SaveScore(ctx, userID, result.TargetPath, result.RulePath, score); err != nil {
			return result, fmt.Errorf("save score for %q: %w", userID, err)
		}
		result.Applied++
	}

	if _, err := dec.Token(); err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	im.logger.Info("scores imported", "rule", result.RulePath, "target", result.TargetPath, "applied", result.Applied)
	return result, nil
}

// scoreValue converts a JSON scalar to a score. Fractions truncate toward
// zero and numeric strings are accepted.
func scoreValue(tok json.Token) (int64, error) {
	switch v := tok.(type) {
	case json.Number:
		return parseScore(v.String())
	case string:
		return parseScore(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("expected a number, got %s", describeToken(tok))
	}
}

func parseScore(raw string) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid score %q", raw)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f >= -math.MinInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("score out of range %q", raw)
	}
	return int64(f), nil
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return fmt.Sprintf("'%c'", rune(v))
	case string:
		return fmt.Sprintf("string %q", v)
	case json.Number:
		return "number " + v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
