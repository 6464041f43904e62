package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/Kevin-nav/AskTheSage/server/internal/errors"
)

func validContent() Content {
	return Content{
		Text:        "What is the integral of 2x?",
		Options:     []string{"x^2 + C", "2x^2", "x + C", "2"},
		AnswerIndex: 0,
		Explanation: "The antiderivative of 2x is x^2 plus a constant.",
	}
}

func TestHashDeterministic(t *testing.T) {
	c := validContent()

	h1, err := Hash(c)
	require.NoError(t, err)
	h2, err := Hash(c)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashWhitespaceInsensitive(t *testing.T) {
	c1 := validContent()
	c2 := validContent()
	c2.Text = "  What   is the\n integral  of 2x?  "
	c2.Explanation = "The antiderivative of 2x\tis x^2 plus a constant.\n"

	h1, err := Hash(c1)
	require.NoError(t, err)
	h2, err := Hash(c2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "whitespace-only edits must not change the hash")
}

func TestHashSensitiveToContent(t *testing.T) {
	base, err := Hash(validContent())
	require.NoError(t, err)

	t.Run("text edit", func(t *testing.T) {
		c := validContent()
		c.Text = "What is the integral of 3x?"
		h, err := Hash(c)
		require.NoError(t, err)
		assert.NotEqual(t, base, h)
	})

	t.Run("option edit", func(t *testing.T) {
		c := validContent()
		c.Options[1] = "3x^2"
		h, err := Hash(c)
		require.NoError(t, err)
		assert.NotEqual(t, base, h)
	})

	t.Run("answer index change", func(t *testing.T) {
		c := validContent()
		c.AnswerIndex = 2
		h, err := Hash(c)
		require.NoError(t, err)
		assert.NotEqual(t, base, h)
	})

	t.Run("explanation edit", func(t *testing.T) {
		c := validContent()
		c.Explanation = "Different explanation."
		h, err := Hash(c)
		require.NoError(t, err)
		assert.NotEqual(t, base, h)
	})
}

func TestHashMalformedContent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Content)
	}{
		{"empty text", func(c *Content) { c.Text = "   " }},
		{"too few options", func(c *Content) { c.Options = []string{"only one"} }},
		{"empty option", func(c *Content) { c.Options[2] = "" }},
		{"answer index negative", func(c *Content) { c.AnswerIndex = -1 }},
		{"answer index out of range", func(c *Content) { c.AnswerIndex = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContent()
			tt.mutate(&c)
			_, err := Hash(c)
			require.Error(t, err)
			assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeMalformedContent), "got %v", err)
		})
	}
}

func TestHashEmptyExplanationAllowed(t *testing.T) {
	c := validContent()
	c.Explanation = ""
	_, err := Hash(c)
	require.NoError(t, err)
}
