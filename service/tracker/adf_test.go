package tracker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionToMarkdown(t *testing.T) {
	t.Run("Empty and null descriptions", func(t *testing.T) {
		for _, raw := range []string{"", "null"} {
			text, err := DescriptionToMarkdown(json.RawMessage(raw))
			require.NoError(t, err)
			assert.Empty(t, text)
		}
	})

	t.Run("Plain string description", func(t *testing.T) {
		text, err := DescriptionToMarkdown(json.RawMessage(`"Login broken"`))
		require.NoError(t, err)
		assert.Equal(t, "Login broken", text)
	})

	t.Run("Paragraphs with marks and links", func(t *testing.T) {
		raw := `{"type":"doc","version":1,"content":[
			{"type":"paragraph","content":[
				{"type":"text","text":"Login "},
				{"type":"text","text":"fails","marks":[{"type":"strong"}]},
				{"type":"text","text":" see "},
				{"type":"text","text":"docs","marks":[{"type":"link","attrs":{"href":"https://docs.example.com"}}]}
			]},
			{"type":"paragraph","content":[{"type":"text","text":"Second"}]}
		]}`
		text, err := DescriptionToMarkdown(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, "Login **fails** see [docs](https://docs.example.com)\n\nSecond", text)
	})

	t.Run("Blockquotes, lists and code", func(t *testing.T) {
		raw := `{"type":"doc","content":[
			{"type":"blockquote","content":[{"type":"paragraph","content":[{"type":"text","text":"quoted"}]}]},
			{"type":"bulletList","content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"}]}]}
			]},
			{"type":"orderedList","attrs":{"order":1},"content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"first"}]}]}
			]},
			{"type":"codeBlock","attrs":{"language":"sh"},"content":[{"type":"text","text":"systemctl restart app"}]}
		]}`
		text, err := DescriptionToMarkdown(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, "> quoted\n\n- one\n- two\n\n1. first\n\n```sh\nsystemctl restart app\n```", text)
	})

	t.Run("Headings and mentions", func(t *testing.T) {
		raw := `{"type":"doc","content":[
			{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Steps"}]},
			{"type":"paragraph","content":[{"type":"mention","attrs":{"text":"@Ann"}},{"type":"text","text":" please check"}]}
		]}`
		text, err := DescriptionToMarkdown(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, "## Steps\n\n@Ann please check", text)
	})

	t.Run("Invalid document", func(t *testing.T) {
		_, err := DescriptionToMarkdown(json.RawMessage(`{"type":`))
		assert.Error(t, err)
	})
}
