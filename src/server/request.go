package server

import (
	"fmt"
	"io"
	"net/http"
)

type (
	// RequestPipeline runs one upstream call in a goroutine, delivering the
	// body or the failure on channels the caller selects on.
	RequestPipeline struct {
		transport *http.Transport
	}
)

func (r RequestPipeline) Execute(method, endpoint string, result chan []byte, errors chan error) {
	request, err := http.NewRequest(method, endpoint, nil)
	if err != nil {
		errors <- fmt.Errorf("error during request prepare: %w", err)
		return
	}
	client := &http.Client{Transport: r.transport}
	response, err := client.Do(request)
	if err != nil {
		errors <- fmt.Errorf("error during request sending: %w", err)
		return
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		errors <- fmt.Errorf("error during body response: %w", err)
		return
	}
	if response.StatusCode != http.StatusOK {
		errors <- fmt.Errorf("unexpected status %d from %s", response.StatusCode, endpoint)
		return
	}
	result <- body
}
