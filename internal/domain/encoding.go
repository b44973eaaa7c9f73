package domain

import (
	"fmt"
)

// EmbeddingDimension is the length of every stored face embedding.
const EmbeddingDimension = 128

// Embedding is a face identity signature produced by an extractor.
type Embedding []float64

// RecordKey is the natural key of an EncodingRecord.
type RecordKey struct {
	PublicID  string
	FaceIndex int
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s#%d", k.PublicID, k.FaceIndex)
}

// EncodingRecord representa uma face detectada em uma imagem do evento.
// URL may be empty when the caller resolves it lazily.
type EncodingRecord struct {
	PublicID  string    `json:"public_id"`
	FaceIndex int       `json:"face_index"`
	URL       string    `json:"url"`
	Encoding  Embedding `json:"encoding"`
}

func (r EncodingRecord) Key() RecordKey {
	return RecordKey{PublicID: r.PublicID, FaceIndex: r.FaceIndex}
}

// Validate checks the record shape against the fixed dimensionality.
func (r EncodingRecord) Validate() error {
	if r.PublicID == "" {
		return fmt.Errorf("record has empty public_id")
	}
	if r.FaceIndex < 0 {
		return fmt.Errorf("record %s: negative face_index", r.PublicID)
	}
	if len(r.Encoding) != EmbeddingDimension {
		return ErrDimensionMismatch.WithError(
			fmt.Errorf("record %s: got %d, want %d", r.Key(), len(r.Encoding), EmbeddingDimension))
	}
	return nil
}

// EncodingCollection is the ordered set of records of one event. Insertion
// order is discovery order and keys are unique.
type EncodingCollection struct {
	records []EncodingRecord
	keys    map[RecordKey]struct{}
}

// NewEncodingCollection returns an empty collection.
func NewEncodingCollection() *EncodingCollection {
	return &EncodingCollection{keys: make(map[RecordKey]struct{})}
}

// Append adds the record unless its key is already present or its shape is
// invalid. It reports whether the record was added.
func (c *EncodingCollection) Append(r EncodingRecord) bool {
	if c.keys == nil {
		c.keys = make(map[RecordKey]struct{})
	}
	if r.Validate() != nil {
		return false
	}
	if _, ok := c.keys[r.Key()]; ok {
		return false
	}
	c.keys[r.Key()] = struct{}{}
	c.records = append(c.records, r)
	return true
}

func (c *EncodingCollection) Contains(key RecordKey) bool {
	_, ok := c.keys[key]
	return ok
}

// HasImage reports whether any face of the image is recorded.
func (c *EncodingCollection) HasImage(publicID string) bool {
	return c.Contains(RecordKey{PublicID: publicID, FaceIndex: 0})
}

// Keys returns a copy of the key set.
func (c *EncodingCollection) Keys() map[RecordKey]struct{} {
	out := make(map[RecordKey]struct{}, len(c.keys))
	for k := range c.keys {
		out[k] = struct{}{}
	}
	return out
}

// Records returns the records in insertion order. The slice must not be
// modified by the caller.
func (c *EncodingCollection) Records() []EncodingRecord {
	return c.records
}

// Clone returns an independent copy. Embedding slices are shared since
// records are never rewritten in place.
func (c *EncodingCollection) Clone() *EncodingCollection {
	out := &EncodingCollection{
		records: make([]EncodingRecord, len(c.records)),
		keys:    c.Keys(),
	}
	copy(out.records, c.records)
	return out
}

func (c *EncodingCollection) Len() int {
	return len(c.records)
}

func (c *EncodingCollection) IsEmpty() bool {
	return len(c.records) == 0
}

// Validate re-checks both collection invariants.
func (c *EncodingCollection) Validate() error {
	seen := make(map[RecordKey]struct{}, len(c.records))
	for _, r := range c.records {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, ok := seen[r.Key()]; ok {
			return fmt.Errorf("duplicate record key %s", r.Key())
		}
		seen[r.Key()] = struct{}{}
	}
	return nil
}
