package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dentalscreen-api/entities"
	"dentalscreen-api/utils"

	"github.com/dustin/go-humanize"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"go.uber.org/zap"
)

type kvStr2Inf = map[string]interface{}

type SubmissionES struct {
	esClient    *elasticsearch.Client
	indexPrefix string
	logger      *zap.Logger
}

func NewSubmissionStore(client *elasticsearch.Client, indexPrefix string, logger *zap.Logger) *SubmissionES {
	return &SubmissionES{
		client, indexPrefix, logger,
	}
}

func getIndexName(indexPrefix string, sub Submission) string {
	indexTime := utils.ConvertTimeStampToTime(sub.Created)
	index := strings.ToLower(fmt.Sprintf("%s_%d%02d", indexPrefix, indexTime.Year(), indexTime.Month()))
	return index
}

func getIndexWildcard(indexPrefix string) string {
	return fmt.Sprintf("%s_*", indexPrefix)
}

//GetSlice function
func (store *SubmissionES) GetSlice(queries map[string][]string, qs string, from int, size int, sort string, aggs []string) ([]Submission, *entities.ESReturn, error) {
	es := store.esClient

	var (
		esReturn entities.ESReturn
		esError  entities.ESError
		buf      bytes.Buffer
	)

	body := utils.ConvertInputsToESQueryBody(queries, qs, from, size, sort, aggs)
	utils.LogDebug(utils.ConvertMapToString(*body))

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, fmt.Errorf("error encoding query: %s", err)
	}

	res, err := es.Search(
		es.Search.WithContext(context.Background()),
		es.Search.WithIndex(getIndexWildcard(store.indexPrefix)),
		es.Search.WithBody(&buf),
		es.Search.WithTrackTotalHits(true),
		es.Search.WithPretty(),
	)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		if err := json.NewDecoder(res.Body).Decode(&esError); err != nil {
			return nil, nil, fmt.Errorf("error parsing the response body: %s", err)
		}
		return nil, nil, fmt.Errorf("[%s] %s: %s", res.Status(), esError.Error.Type, esError.Error.Reason)
	}

	if err := json.NewDecoder(res.Body).Decode(&esReturn); err != nil {
		return nil, nil, fmt.Errorf("error parsing the response body: %s", err)
	}

	utils.LogDebug("[%s] %d hits; took: %dms", res.Status(), esReturn.Hits.Total.Value, esReturn.Took)

	subs := make([]Submission, 0)
	for _, hit := range esReturn.Hits.Hits {
		var sub Submission
		mapData := hit.Source
		bytesData, _ := json.Marshal(mapData)
		err := json.Unmarshal(bytesData, &sub)
		if err == nil {
			subs = append(subs, sub)
		}
	}

	return subs, &esReturn, nil
}

//Get one submission
func (store *SubmissionES) Get(queries map[string][]string, qs string) (*Submission, *entities.ESReturn, error) {
	subs, esReturn, err := store.GetSlice(queries, qs, 0, 1, "", nil)
	if err != nil {
		return nil, nil, err
	}
	if len(subs) > 0 {
		return &subs[0], esReturn, nil
	}
	return nil, esReturn, nil
}

//GetByID convenience wrapper used by every handler
func (store *SubmissionES) GetByID(id string) (*Submission, *entities.ESReturn, error) {
	return store.Get(nil, fmt.Sprintf("_id:%s", id))
}

// Create function
func (store *SubmissionES) Create(sub Submission) error {
	req := esapi.IndexRequest{
		Index:      getIndexName(store.indexPrefix, sub),
		DocumentID: sub.ID,
		Body:       strings.NewReader(sub.String()),
		Refresh:    "true",
	}

	ctx := context.Background()
	res, err := req.Do(ctx, store.esClient.Transport)
	if err != nil {
		return fmt.Errorf("IndexRequest ERROR: %s", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%s ERROR indexing document ID=%s", res.Status(), sub.ID)
	}

	var resMap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&resMap); err != nil {
		return err
	}

	if resMap["result"] == "created" {
		return nil
	}

	return err
}

// BulkCreate function
func (store *SubmissionES) BulkCreate(subs []Submission) error {
	var (
		buf bytes.Buffer
		res *esapi.Response
		blk *entities.ESBulkResponse

		indexName = getIndexName(store.indexPrefix, subs[0])

		numErrors  int
		numIndexed int
	)

	count := len(subs)
	batch := 10

	utils.LogDebug("Bulk: documents [%s] batch size [%s]",
		humanize.Comma(int64(count)), humanize.Comma(int64(batch)))

	es := store.esClient
	start := time.Now().UTC()

	for i, sub := range subs {
		meta := []byte(fmt.Sprintf(`{ "index" : { "_id" : "%s" } }%s`, sub.ID, "\n"))

		data, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("cannot encode %s: %s", sub.ID, err)
		}
		data = append(data, "\n"...)

		buf.Grow(len(meta) + len(data))
		buf.Write(meta)
		buf.Write(data)

		if i > 0 && i%batch == 0 || i == count-1 {
			res, err = es.Bulk(bytes.NewReader(buf.Bytes()), es.Bulk.WithIndex(indexName), es.Bulk.WithRefresh("true"))
			if err != nil {
				return fmt.Errorf("failure indexing batch: %s", err)
			}

			if res.IsError() {
				numErrors += batch
				var raw map[string]interface{}
				if err := json.NewDecoder(res.Body).Decode(&raw); err == nil {
					utils.LogError(fmt.Errorf("bulk error: [%d] %v", res.StatusCode, raw["error"]))
				}
			} else {
				if err := json.NewDecoder(res.Body).Decode(&blk); err == nil {
					for _, d := range blk.Items {
						if d.Index.Status > 201 {
							numErrors++
							utils.LogDebug("Error: [%d]: %s: %s",
								d.Index.Status, d.Index.Error.Type, d.Index.Error.Reason)
						} else {
							numIndexed++
						}
					}
				}
			}

			res.Body.Close()
			buf.Reset()
		}
	}

	dur := time.Since(start)

	if numErrors > 0 {
		utils.LogDebug("Indexed [%s] documents with [%s] errors in %s",
			humanize.Comma(int64(numIndexed)),
			humanize.Comma(int64(numErrors)),
			dur.Truncate(time.Millisecond))
	} else {
		utils.LogDebug("Successfully indexed [%s] documents in %s",
			humanize.Comma(int64(numIndexed)),
			dur.Truncate(time.Millisecond))
	}
	return nil
}

// Update function
func (store *SubmissionES) Update(sub Submission, update map[string]interface{}) error {
	_, esReturn, err := store.Get(nil, fmt.Sprintf("_id:%s", sub.ID))
	if err != nil {
		return err
	}
	if len(esReturn.Hits.Hits) == 0 {
		return fmt.Errorf("submission not found: %s", sub.ID)
	}
	indexName := esReturn.Hits.Hits[0].Index

	update["modified"] = nowMillis()

	var buf bytes.Buffer
	body := kvStr2Inf{}
	body["doc"] = update

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("error encoding query: %s", err)
	}
	req := esapi.UpdateRequest{
		Index:      indexName,
		DocumentID: sub.ID,
		Refresh:    "true",
		Body:       &buf,
	}

	ctx := context.Background()
	res, err := req.Do(ctx, store.esClient)
	if err != nil {
		return fmt.Errorf("UpdateRequest ERROR: %s", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%s ERROR updating document ID=%s", res.Status(), sub.ID)
	}

	var resMap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&resMap); err != nil {
		return fmt.Errorf("error parsing the response body: %s", err)
	}

	return nil
}
