package store

import (
	"encoding/json"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

// Encode renders the collection as the JSON array shared by the local cache
// and the remote mirror. An empty collection encodes as "[]".
func Encode(c *domain.EncodingCollection) ([]byte, error) {
	records := c.Records()
	if records == nil {
		records = []domain.EncodingRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

// Decode parses a payload. Records that would break a collection invariant
// (duplicate key, wrong dimensionality, empty id) are dropped and returned
// separately so the caller can report them. The first occurrence of a key wins.
func Decode(data []byte) (*domain.EncodingCollection, []domain.EncodingRecord, error) {
	var records []domain.EncodingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("decode collection: %w", err)
	}

	c := domain.NewEncodingCollection()
	var dropped []domain.EncodingRecord
	for _, r := range records {
		if !c.Append(r) {
			dropped = append(dropped, r)
		}
	}
	return c, dropped, nil
}
