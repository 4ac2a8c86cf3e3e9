package index

import (
	"github.com/google/uuid"
	"github.com/siherrmann/triage/model"
)

func newEntry(documentID uuid.UUID, source string, vector []float32, metadata model.Metadata) *model.IndexEntry {
	md := metadata.Copy()
	md[model.MetadataSource] = source
	md[model.MetadataSourceKind] = string(model.SourceKindRecord)

	chunk := &model.Chunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		Text:       "passage from " + source,
		Metadata:   md,
	}
	return model.NewIndexEntry(chunk, vector)
}

func entryIDs(scored []model.ScoredEntry) []uuid.UUID {
	ids := make([]uuid.UUID, len(scored))
	for i, s := range scored {
		ids[i] = s.Entry.ID
	}
	return ids
}
