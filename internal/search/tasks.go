package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/taskvault/taskvault/internal/models"
)

// taskDoc is the indexed projection of a task. Associations are flattened
// to names so full-text search covers them.
type taskDoc struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Subject     string   `json:"subject"`
	Authors     []string `json:"authors"`
	Tags        []string `json:"tags"`
}

func docFromTask(t *models.Task) taskDoc {
	d := taskDoc{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Subject:     t.Subject.Name,
	}
	for _, a := range t.Authors {
		d.Authors = append(d.Authors, a.Name)
	}
	for _, tag := range t.Tags {
		d.Tags = append(d.Tags, tag.Name)
	}
	return d
}

func IndexTask(ctx context.Context, es *elasticsearch.Client, index string, t *models.Task) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(docFromTask(t)); err != nil {
		return err
	}

	res, err := es.Index(index, &buf,
		es.Index.WithDocumentID(fmt.Sprint(t.ID)),
		es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index task %d: %s", t.ID, res.Status())
	}
	return nil
}

func DeleteTask(ctx context.Context, es *elasticsearch.Client, index string, id uint) error {
	res, err := es.Delete(index, fmt.Sprint(id), es.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// a task that was never indexed is fine
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete task %d: %s", id, res.Status())
	}
	return nil
}

// Tasks runs a fuzzy multi_match over the indexed task fields and returns
// the total hit count plus one page of matches.
func Tasks(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []uint, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description", "subject", "authors", "tags"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source taskDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return r.Hits.Total.Value, ids, nil
}
