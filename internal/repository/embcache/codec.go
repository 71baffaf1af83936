package embcache

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/vector"
)

// encode serializes the id to vector mapping. Keys are emitted sorted,
// so equal maps produce identical bytes.
func encode(vectors map[string]vector.Vector) ([]byte, error) {
	doc := make(map[string][]float32, len(vectors))
	for id, v := range vectors {
		doc[id] = v
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode embeddings: %w", err)
	}
	return data, nil
}

// decoded is the validated result of reading a stored cache document.
type decoded struct {
	vectors map[string]vector.Vector
	dims    int
	dropped []string
}

// decode validates a stored document entry by entry. A document that is not
// a JSON object fails; individual entries that are not finite vectors of the
// cache dimension are dropped and reported. dims == 0 lets the first valid
// entry fix the dimension.
func decode(data []byte, dims int) (decoded, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return decoded{}, fmt.Errorf("decode embeddings: %w: %w", domain.ErrStorageFailure, err)
	}

	out := decoded{vectors: make(map[string]vector.Vector, len(raw)), dims: dims}
	for _, id := range sortedKeys(raw) {
		var v []float32
		if id == "" || json.Unmarshal(raw[id], &v) != nil || vector.Validate(v) != nil {
			out.dropped = append(out.dropped, id)
			continue
		}
		if out.dims == 0 {
			out.dims = len(v)
		}
		if len(v) != out.dims {
			out.dropped = append(out.dropped, id)
			continue
		}
		out.vectors[id] = v
	}
	return out, nil
}
