package elsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9/esapi"
)

var contractMapping = []byte(`{
  "mappings": {
    "properties": {
      "contract_id":      {"type": "long"},
      "contract_number":  {"type": "keyword"},
      "contract_title":   {"type": "text"},
      "description":      {"type": "text"},
      "contract_kind":    {"type": "keyword"},
      "status":           {"type": "keyword"},
      "workflow_stage":   {"type": "keyword"},
      "vendor_id":        {"type": "long"},
      "main_contract_id": {"type": "long"},
      "governing_law":    {"type": "text"},
      "jurisdiction":     {"type": "text"},
      "is_archived":      {"type": "boolean"},
      "updated_at":       {"type": "date"}
    }
  }
}`)

// SearchParams pages a contract search
type SearchParams struct {
	Query    string
	Page     int
	PageSize int
}

// SearchResult is one page of matching contract documents
type SearchResult struct {
	Contracts []map[string]interface{} `json:"contracts"`
	Total     int64                    `json:"total"`
	Page      int                      `json:"page"`
	PageSize  int                      `json:"page_size"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// IndexContract writes or replaces the document of a contract
func (c *Client) IndexContract(ctx context.Context, id string, doc map[string]interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding contract %s: %w", id, err)
	}
	req := esapi.IndexRequest{
		Index:      c.config.IndexName,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.ES)
	if err != nil {
		return fmt.Errorf("indexing contract %s: %w", id, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("indexing contract %s: %s", id, res.Status())
	}
	return nil
}

// DeleteContract removes the document of a contract. A missing document is
// not an error.
func (c *Client) DeleteContract(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: c.config.IndexName, DocumentID: id}
	res, err := req.Do(ctx, c.ES)
	if err != nil {
		return fmt.Errorf("deleting contract %s: %w", id, err)
	}
	defer drain(res)
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting contract %s: %s", id, res.Status())
	}
	return nil
}

// SearchContracts runs a full-text search over live contracts
func (c *Client) SearchContracts(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 50
	}
	from := (params.Page - 1) * params.PageSize

	body, err := json.Marshal(BuildSearchQuery(params.Query, from, params.PageSize))
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.IndexName},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.ES)
	if err != nil {
		return nil, fmt.Errorf("searching contracts: %w", err)
	}
	defer drain(res)

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("searching contracts: %s - %s", res.Status(), string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	out := &SearchResult{
		Contracts: make([]map[string]interface{}, 0, len(parsed.Hits.Hits)),
		Total:     parsed.Hits.Total.Value,
		Page:      params.Page,
		PageSize:  params.PageSize,
	}
	for _, hit := range parsed.Hits.Hits {
		var doc map[string]interface{}
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			continue
		}
		out.Contracts = append(out.Contracts, doc)
	}
	return out, nil
}

// BuildSearchQuery builds the search body. An empty query lists the most
// recently updated contracts.
func BuildSearchQuery(query string, from, size int) map[string]interface{} {
	live := map[string]interface{}{"term": map[string]interface{}{"is_archived": false}}
	byUpdated := map[string]interface{}{"updated_at": map[string]string{"order": "desc"}}

	if query == "" {
		return map[string]interface{}{
			"from":  from,
			"size":  size,
			"query": map[string]interface{}{"bool": map[string]interface{}{"filter": []interface{}{live}}},
			"sort":  []interface{}{byUpdated},
		}
	}
	return map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query": query,
						"fields": []string{
							"contract_number^4",
							"contract_title^3",
							"description^2",
							"governing_law",
							"jurisdiction",
						},
						"type":      "best_fields",
						"fuzziness": "AUTO",
						"operator":  "or",
					},
				},
				"filter": []interface{}{live},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]string{"order": "desc"}},
			byUpdated,
		},
	}
}
