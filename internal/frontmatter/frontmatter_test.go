package frontmatter_test

import (
	"testing"

	"vinsly/internal/frontmatter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type header struct {
	Name  string           `yaml:"name"`
	Tools frontmatter.List `yaml:"tools,omitempty"`
}

func TestSplit(t *testing.T) {
	t.Run("splits header and body", func(t *testing.T) {
		front, body, ok := frontmatter.Split("---\nname: a\n---\n\nbody text\n")

		require.True(t, ok)
		assert.Equal(t, "name: a", front)
		assert.Equal(t, "body text\n", body)
	})

	t.Run("handles CRLF", func(t *testing.T) {
		front, body, ok := frontmatter.Split("---\r\nname: a\r\n---\r\nbody")

		require.True(t, ok)
		assert.Equal(t, "name: a", front)
		assert.Equal(t, "body", body)
	})

	t.Run("no header returns whole input", func(t *testing.T) {
		_, body, ok := frontmatter.Split("# Title\n")

		assert.False(t, ok)
		assert.Equal(t, "# Title\n", body)
	})

	t.Run("unterminated header is not a header", func(t *testing.T) {
		_, _, ok := frontmatter.Split("---\nname: a\n")

		assert.False(t, ok)
	})
}

func TestDecode(t *testing.T) {
	t.Run("tools as comma string", func(t *testing.T) {
		var h header
		_, err := frontmatter.Decode("---\nname: rev\ntools: Read, Grep ,Bash\n---\n", &h)

		require.NoError(t, err)
		assert.Equal(t, frontmatter.List{"Read", "Grep", "Bash"}, h.Tools)
	})

	t.Run("tools as sequence", func(t *testing.T) {
		var h header
		_, err := frontmatter.Decode("---\ntools:\n  - Read\n  - Write\n---\n", &h)

		require.NoError(t, err)
		assert.Equal(t, frontmatter.List{"Read", "Write"}, h.Tools)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		var h header
		_, err := frontmatter.Decode("---\nname: [oops\n---\n", &h)

		assert.Error(t, err)
	})
}

func TestCompose(t *testing.T) {
	out, err := frontmatter.Compose(header{Name: "rev"}, "Do reviews.")
	require.NoError(t, err)

	assert.Equal(t, "---\nname: rev\n---\n\nDo reviews.\n", out)

	var h header
	body, err := frontmatter.Decode(out, &h)
	require.NoError(t, err)
	assert.Equal(t, "rev", h.Name)
	assert.Equal(t, "Do reviews.\n", body)
}
