package submission

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeESTransport struct {
	fn func(req *http.Request) (*http.Response, error)
}

func (transport *fakeESTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return transport.fn(req)
}

func newFakeESClient(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *elasticsearch.Client {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://elasticsearch:9200"},
		Transport: &fakeESTransport{fn: fn},
	})
	assert.Nil(t, err)
	return es
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       ioutil.NopCloser(strings.NewReader(body)),
	}
}

func searchResponse(sub *Submission) string {
	source, _ := json.Marshal(sub)
	return fmt.Sprintf(`{"took":1,"hits":{"total":{"value":1},"hits":[{"_index":"submissions_202103","_id":%q,"_source":%s}]}}`,
		sub.ID, source)
}

func TestCreateSubmission(t *testing.T) {
	var method, path string
	es := newFakeESClient(t, func(req *http.Request) (*http.Response, error) {
		method = req.Method
		path = req.URL.Path
		return jsonResponse(201, `{"result":"created"}`), nil
	})
	store := NewSubmissionStore(es, "submissions", zap.NewNop())

	sub := makeSubmission()
	assert.Nil(t, store.Create(*sub))
	assert.Equal(t, "PUT", method)
	// Monthly index derived from the created stamp.
	assert.Contains(t, path, "submissions_")
	assert.Contains(t, path, sub.ID)
}

func TestGetSubmissionByID(t *testing.T) {
	sub := makeSubmission()
	es := newFakeESClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, searchResponse(sub)), nil
	})
	store := NewSubmissionStore(es, "submissions", zap.NewNop())

	got, esReturn, err := store.GetByID(sub.ID)
	assert.Nil(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, 1, esReturn.Hits.Total.Value)
}

func TestBulkCreateSubmissions(t *testing.T) {
	var bulkCalls int
	var payloadLines int
	es := newFakeESClient(t, func(req *http.Request) (*http.Response, error) {
		bulkCalls++
		body, _ := ioutil.ReadAll(req.Body)
		payloadLines = len(strings.Split(strings.TrimSpace(string(body)), "\n"))
		items := make([]string, 0)
		for i := 0; i < 3; i++ {
			items = append(items, `{"index":{"_id":"x","result":"created","status":201}}`)
		}
		return jsonResponse(200, fmt.Sprintf(`{"errors":false,"items":[%s]}`, strings.Join(items, ","))), nil
	})
	store := NewSubmissionStore(es, "submissions", zap.NewNop())

	subs := []Submission{*makeSubmission(), *makeSubmission(), *makeSubmission()}
	assert.Nil(t, store.BulkCreate(subs))

	// All three fit one batch: one bulk call, a meta plus a doc line each.
	assert.Equal(t, 1, bulkCalls)
	assert.Equal(t, 6, payloadLines)
}
