package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/minutes/internal/models"
)

// Field names in the index.
const (
	fieldContent      = "content"
	fieldSpeakerName  = "speaker_name"
	fieldMeetingTitle = "meeting_title"
	fieldUserID       = "user_id"
	fieldMeetingID    = "meeting_id"
	fieldChunkIndex   = "chunk_index"
)

// deleteBatchSize bounds the ids fetched per round when deleting a meeting.
const deleteBatchSize = 500

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase and tokenize without stemming, so names match as spoken.
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldContent, text)
	doc.AddFieldMappingsAt(fieldSpeakerName, text)
	doc.AddFieldMappingsAt(fieldMeetingTitle, text)

	kw := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt(fieldUserID, kw)
	doc.AddFieldMappingsAt(fieldMeetingID, kw)

	num := bleve.NewNumericFieldMapping()
	num.Index = false
	doc.AddFieldMappingsAt(fieldChunkIndex, num)

	im.AddDocumentMapping("chunk", doc)
	im.DefaultType = "chunk"
	im.DefaultMapping = doc
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is reopened
// so chunks survive restarts; remove the directory after changing the mapping.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex returns an index that lives only in memory.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexChunks indexes docs in one batch. Re-indexing a vector id replaces it.
func (b *BleveIndex) IndexChunks(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.VectorID, map[string]interface{}{
			fieldContent:      d.Content,
			fieldSpeakerName:  d.SpeakerName,
			fieldMeetingTitle: d.MeetingTitle,
			fieldUserID:       d.UserID,
			fieldMeetingID:    d.MeetingID,
			fieldChunkIndex:   float64(d.ChunkIndex),
		}); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", d.VectorID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search matches query against content, speaker and meeting title within userID's chunks.
func (b *BleveIndex) Search(ctx context.Context, userID, query string, limit int, opts *SearchOptions) ([]*models.KeywordHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []*models.KeywordHit{}, nil
	}
	if opts == nil {
		opts = &SearchOptions{}
	}

	must := []blevequery.Query{termQuery(fieldUserID, userID)}
	if opts.MeetingID != "" {
		must = append(must, termQuery(fieldMeetingID, opts.MeetingID))
	}
	must = append(must, textQuery(query, opts))

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(must...))
	req.Size = limit
	req.Fields = []string{fieldContent, fieldSpeakerName, fieldMeetingTitle, fieldMeetingID}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*models.KeywordHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		out = append(out, &models.KeywordHit{
			VectorID:     hit.ID,
			MeetingID:    stringField(hit.Fields, fieldMeetingID),
			MeetingTitle: stringField(hit.Fields, fieldMeetingTitle),
			SpeakerName:  stringField(hit.Fields, fieldSpeakerName),
			Content:      stringField(hit.Fields, fieldContent),
			Score:        hit.Score,
		})
	}
	return out, nil
}

func termQuery(field, value string) blevequery.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

// textQuery is a disjunction over the text fields. With fuzzy matching each term becomes
// a FuzzyQuery per field.
func textQuery(query string, opts *SearchOptions) blevequery.Query {
	fields := []string{fieldContent, fieldSpeakerName, fieldMeetingTitle}
	var should []blevequery.Query
	if !opts.FuzzyEnabled {
		for _, f := range fields {
			mq := bleve.NewMatchQuery(query)
			mq.SetField(f)
			should = append(should, mq)
		}
		return bleve.NewDisjunctionQuery(should...)
	}

	fuzziness := opts.Fuzziness
	if fuzziness <= 0 {
		fuzziness = 1
	}
	for _, term := range strings.Fields(strings.ToLower(query)) {
		for _, f := range fields {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			fq.SetField(f)
			should = append(should, fq)
		}
	}
	return bleve.NewDisjunctionQuery(should...)
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// DeleteMeeting removes every chunk of meetingID owned by userID.
func (b *BleveIndex) DeleteMeeting(ctx context.Context, userID, meetingID string) error {
	q := bleve.NewConjunctionQuery(termQuery(fieldUserID, userID), termQuery(fieldMeetingID, meetingID))
	for {
		req := bleve.NewSearchRequest(q)
		req.Size = deleteBatchSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("Bleve search failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve delete failed: %w", err)
		}
	}
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
