// Package render provides the content-addressed render cache: a stable
// content identity for questions, a two-tier (in-process + durable)
// artifact cache, and the collaborator interfaces it is built around.
package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
	"github.com/Kevin-nav/AskTheSage/store"
)

// Content is the renderable content of a question. It is the input to both
// hashing and rendering; the cache never looks inside it.
type Content struct {
	Text        string
	Options     []string
	AnswerIndex int
	Explanation string
}

// ContentFromQuestion extracts renderable content from a stored question.
func ContentFromQuestion(q *store.Question) Content {
	return Content{
		Text:        q.Text,
		Options:     q.Options,
		AnswerIndex: int(q.AnswerIndex),
		Explanation: q.Explanation,
	}
}

// Validate checks that the content can form a valid question.
func (c Content) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return qerrors.MalformedContent("question text is required")
	}
	if len(c.Options) < 2 {
		return qerrors.MalformedContent(fmt.Sprintf("at least 2 options are required, got %d", len(c.Options)))
	}
	for i, opt := range c.Options {
		if strings.TrimSpace(opt) == "" {
			return qerrors.MalformedContent(fmt.Sprintf("option %d is empty", i))
		}
	}
	if c.AnswerIndex < 0 || c.AnswerIndex >= len(c.Options) {
		return qerrors.MalformedContent(fmt.Sprintf("answer index %d out of range [0, %d)", c.AnswerIndex, len(c.Options)))
	}
	return nil
}

// Hash computes the stable content identity: a sha256 over the
// whitespace-normalized content fields. Identical content always hashes
// identically; cosmetic whitespace differences do not change the hash.
func Hash(c Content) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "text:%s\n", normalizeWhitespace(c.Text))
	for i, opt := range c.Options {
		fmt.Fprintf(h, "option:%d:%s\n", i, normalizeWhitespace(opt))
	}
	fmt.Fprintf(h, "answer:%d\n", c.AnswerIndex)
	fmt.Fprintf(h, "explanation:%s\n", normalizeWhitespace(c.Explanation))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// normalizeWhitespace collapses all runs of whitespace to single spaces and
// trims the ends, so a cosmetic re-save never creates a new identity.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
