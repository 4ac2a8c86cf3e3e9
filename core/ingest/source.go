package ingest

import (
	"fmt"

	"github.com/siherrmann/triage/model"
)

// Source is something the ingestor can load documents from. URI names a
// file or URL. Record sources carry their rows in Records, URI then only
// names the collection.
type Source struct {
	Kind     model.SourceKind
	URI      string
	Records  []model.Record
	Metadata model.Metadata
}

func FileSource(path string) Source {
	return Source{Kind: model.SourceKindFile, URI: path}
}

func URLSource(rawURL string) Source {
	return Source{Kind: model.SourceKindURL, URI: rawURL}
}

func RecordSource(uri string, records []model.Record) Source {
	return Source{Kind: model.SourceKindRecord, URI: uri, Records: records}
}

// TicketSource turns tickets into record documents, one per ticket.
// Documents are named tracker:<project>#<key>.
func TicketSource(project string, tickets []*model.Ticket) Source {
	records := make([]model.Record, len(tickets))
	for i, t := range tickets {
		records[i] = t.Record()
	}
	return Source{
		Kind:     model.SourceKindRecord,
		URI:      fmt.Sprintf("tracker:%s", project),
		Records:  records,
		Metadata: model.Metadata{"project": project},
	}
}
