package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/siherrmann/triage/model"
)

// separatorLevels are tried in order, largest unit first.
// Raw character splitting is the implicit last level.
var separatorLevels = [][]string{
	{"\n\n"},
	{". ", "! ", "? ", "\n"},
	{" ", "\t"},
}

// Segment is a piece of text and its rune offset in the source text
type Segment struct {
	Text  string
	Start int
}

// RecursiveChunker creates a chunker that splits a document into chunks of at
// most maxSize runes where each chunk starts with the last overlap runes of
// its predecessor.
func RecursiveChunker(maxSize, overlap int) ChunkFunc {
	return func(doc *model.Document) ([]*model.Chunk, error) {
		segments, err := SplitText(doc.RawText, maxSize, overlap)
		if err != nil {
			return nil, err
		}

		chunks := make([]*model.Chunk, len(segments))
		for i, s := range segments {
			md := doc.Metadata.Copy()
			md["position"] = fmt.Sprint(i)
			chunks[i] = &model.Chunk{
				ID:         uuid.New(),
				DocumentID: doc.ID,
				Text:       s.Text,
				Position:   i,
				Start:      s.Start,
				Metadata:   md,
			}
		}
		return chunks, nil
	}
}

// SplitText splits text into overlapping segments. Separators are preferred
// from paragraph over sentence and whitespace down to single characters.
// Dropping the leading overlap of every segment but the first and joining
// the rest gives back text unchanged.
func SplitText(text string, maxSize, overlap int) ([]Segment, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive")
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", maxSize, overlap)
	}

	if strings.TrimSpace(text) == "" {
		return []Segment{}, nil
	}

	if utf8.RuneCountInString(text) <= maxSize {
		return []Segment{{Text: text, Start: 0}}, nil
	}

	pieces := splitRecursive(text, maxSize-overlap, 0)

	var segments []Segment
	var current strings.Builder
	currentLen := 0
	consumed := 0
	pending := false

	write := func(s string, n int) {
		current.WriteString(s)
		currentLen += n
		consumed += n
		pending = true
	}
	flush := func() {
		segment := Segment{Text: current.String(), Start: consumed - currentLen}
		segments = append(segments, segment)

		tail := lastRunes(segment.Text, overlap)
		current.Reset()
		current.WriteString(tail)
		currentLen = utf8.RuneCountInString(tail)
		pending = false
	}

	for _, p := range pieces {
		text := p.text
		for text != "" {
			n := utf8.RuneCountInString(text)
			if currentLen+n <= maxSize {
				write(text, n)
				break
			}

			// Pieces without any separator may be cut anywhere to fill the chunk.
			if p.raw {
				if room := maxSize - currentLen; room > 0 {
					runes := []rune(text)
					write(string(runes[:room]), room)
					text = string(runes[room:])
				}
				flush()
				continue
			}

			if !pending {
				write(text, n)
				break
			}
			flush()
		}
	}
	if pending {
		segments = append(segments, Segment{Text: current.String(), Start: consumed - currentLen})
	}

	return segments, nil
}

type piece struct {
	text string
	raw  bool
}

// splitRecursive splits text into consecutive pieces of at most limit runes,
// using the separators of level and finer ones.
func splitRecursive(text string, limit int, level int) []piece {
	if utf8.RuneCountInString(text) <= limit {
		return []piece{{text: text}}
	}

	if level >= len(separatorLevels) {
		return splitRunes(text, limit)
	}

	parts := splitAfterAny(text, separatorLevels[level])
	if len(parts) == 1 {
		return splitRecursive(text, limit, level+1)
	}

	var pieces []piece
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= limit {
			pieces = append(pieces, piece{text: part})
			continue
		}
		pieces = append(pieces, splitRecursive(part, limit, level+1)...)
	}
	return pieces
}

// splitAfterAny cuts text after every occurrence of one of seps.
// The separator stays with the piece in front of it.
func splitAfterAny(text string, seps []string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); {
		matched := ""
		for _, sep := range seps {
			if strings.HasPrefix(text[i:], sep) {
				matched = sep
				break
			}
		}
		if matched == "" {
			i++
			continue
		}
		i += len(matched)
		parts = append(parts, text[start:i])
		start = i
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

func splitRunes(text string, limit int) []piece {
	runes := []rune(text)
	pieces := make([]piece, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		pieces = append(pieces, piece{text: string(runes[start:end]), raw: true})
	}
	return pieces
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
