package helper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"dentalscreen-api/utils"

	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/google/uuid"
)

// IDGenerator taps an external sequence service for human-readable
// report numbers. When no service is configured it falls back to a
// random suffix; the fallback is regenerated on every attempt, so
// retries produce distinct artifacts.
type IDGenerator struct {
	uri    string
	client *httpclient.Client
}

func NewIDGenerator(uri string) *IDGenerator {
	timeout := 1000 * time.Millisecond
	return &IDGenerator{
		uri:    uri,
		client: httpclient.NewClient(httpclient.WithHTTPTimeout(timeout)),
	}
}

func (idGen *IDGenerator) GenNew(key string) (int, error) {
	client := idGen.client
	url := fmt.Sprintf("%s/id_generator/%s/tap", idGen.uri, key)
	utils.LogInfo(url)

	var buf bytes.Buffer
	body := make(map[string]interface{})
	json.NewEncoder(&buf).Encode(body)

	req, err := http.NewRequest("PUT", url, &buf)
	if err != nil {
		utils.LogError(err)
		return -1, err
	}
	res, err := client.Do(req)
	if err != nil {
		utils.LogError(err)
		return -1, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("bad status: %s", res.Status)
		return -1, err
	}

	bytesData, err := ioutil.ReadAll(res.Body)
	if err != nil {
		utils.LogError(err)
		return -1, err
	}

	resp := make(map[string]interface{})
	if err = json.Unmarshal(bytesData, &resp); err != nil {
		return -1, err
	}
	last, ok := resp["last_insert_id"].(float64)
	if !ok {
		return -1, fmt.Errorf("unexpected id generator response")
	}

	return int(last), nil
}

// NewReportNumber yields the next report number, service-backed when a
// URI is configured, random otherwise.
func (idGen *IDGenerator) NewReportNumber() string {
	if idGen != nil && idGen.uri != "" {
		if n, err := idGen.GenNew("report"); err == nil {
			return fmt.Sprintf("DS-%06d", n)
		}
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return "DS-" + suffix
}
