// SPDX-License-Identifier: GPL-3.0-or-later
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/CrawX/go-newsletter-assassin/domain"
	"github.com/CrawX/go-newsletter-assassin/log"

	"github.com/sirupsen/logrus"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.2"

	// MaxNumPredict caps the output length, only a one word verdict is expected.
	MaxNumPredict = 50
)

type Ollama struct {
	client *http.Client
	host   string
	model  string

	l *logrus.Logger
}

// NewOllama does not contact the server, the timeouts of the requests are controlled by the contexts
// passed to Ping and Generate.
func NewOllama(host, model string) *Ollama {
	if len(host) == 0 {
		host = DefaultHost
	}
	if len(model) == 0 {
		model = DefaultModel
	}

	return &Ollama{
		client: &http.Client{},
		host:   strings.TrimSuffix(host, "/"),
		model:  model,
		l:      log.Logger(log.LOG_MODEL),
	}
}

func (o *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("could not create ping request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not ping ollama: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("unexpected status %d from ollama, expected 2xx", resp.StatusCode)
	}

	return nil
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) Generate(ctx context.Context, request *domain.GenerateRequest) (string, error) {
	numPredict := request.NumPredict
	if numPredict <= 0 || numPredict > MaxNumPredict {
		numPredict = MaxNumPredict
	}

	payload, err := json.Marshal(&generateRequest{
		Model:  o.model,
		Prompt: request.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: request.Temperature,
			NumPredict:  numPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("could not serialize generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("could not create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not perform generate request: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("unexpected status %d from ollama, expected 2xx", resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read ollama response: %w", err)
	}

	generateResponse := &generateResponse{}
	err = json.Unmarshal(body, generateResponse)
	if err != nil {
		return "", fmt.Errorf("could not deserialize ollama response: %w", err)
	}

	o.l.WithFields(logrus.Fields{"model": o.model, "response": generateResponse.Response}).Trace("Generated")

	return generateResponse.Response, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
