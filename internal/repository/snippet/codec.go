package snippet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
)

// record is the stored shape of one item. The domain is implied by the area.
type record struct {
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	SourceURL string    `json:"source_url,omitempty"`
	Title     string    `json:"title,omitempty"`
}

type decoded struct {
	items      []item.Item
	backfilled int
	dropped    int
}

// decode validates a stored sequence. Records without text are dropped;
// records without an id, or repeating an earlier id, get a fresh one.
func decode(data []byte, d item.Domain) (decoded, error) {
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return decoded{}, fmt.Errorf("decode %s snippets: %w: %w", d, domain.ErrStorageFailure, err)
	}

	out := decoded{items: make([]item.Item, 0, len(recs))}
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if strings.TrimSpace(r.Text) == "" {
			out.dropped++
			continue
		}
		id := strings.TrimSpace(r.ID)
		if _, dup := seen[id]; id == "" || dup {
			id = item.NewID()
			out.backfilled++
		}
		seen[id] = struct{}{}
		out.items = append(out.items, item.Reconstruct(id, r.Text, d, r.CreatedAt, r.SourceURL, r.Title))
	}
	return out, nil
}

func encode(items []item.Item) ([]byte, error) {
	recs := make([]record, len(items))
	for i := range items {
		it := &items[i]
		recs[i] = record{
			ID:        it.ID(),
			Text:      it.Text(),
			CreatedAt: it.CreatedAt(),
			SourceURL: it.SourceURL(),
			Title:     it.Title(),
		}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode snippets: %w", err)
	}
	return data, nil
}
