package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "http://localhost:8080"
)

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	// 1. Health
	fmt.Println("1. Health check...")
	if !sendRequest("GET", "/health", nil) {
		fmt.Println("FAILED: Health check")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health check")

	// 2. Decompose query
	fmt.Println("2. Decomposing query...")
	if !sendRequest("POST", "/decompose-query", map[string]string{
		"query": "llms and their use in neural networks",
	}) {
		fmt.Println("FAILED: Decompose query")
		os.Exit(1)
	}
	fmt.Println("PASSED: Decompose query")

	// 3. Unrated citation search
	fmt.Println("3. Citation search...")
	searchPayload := map[string]interface{}{
		"query":          "attention is all you need",
		"forward_limit":  2,
		"backward_limit": 2,
	}
	if !sendRequest("POST", "/citation-search", searchPayload) {
		fmt.Println("FAILED: Citation search")
		os.Exit(1)
	}
	fmt.Println("PASSED: Citation search")

	// 4. Rated citation search, twice: the second run must come from cache.
	fmt.Println("4. Rated citation search (cold)...")
	start := time.Now()
	if !sendRequest("POST", "/citation-search-rated", searchPayload) {
		fmt.Println("FAILED: Rated citation search")
		os.Exit(1)
	}
	cold := time.Since(start)

	fmt.Println("5. Rated citation search (cached)...")
	start = time.Now()
	if !sendRequest("POST", "/citation-search-rated", searchPayload) {
		fmt.Println("FAILED: Rated citation search (cached)")
		os.Exit(1)
	}
	cached := time.Since(start)
	fmt.Printf("PASSED: Rated citation search (cold %v, cached %v)\n", cold, cached)

	// 6. Cache stats and clear
	fmt.Println("6. Cache stats and clear...")
	if !sendRequest("GET", "/cache/stats", nil) || !sendRequest("GET", "/cache/clear", nil) {
		fmt.Println("FAILED: Cache endpoints")
		os.Exit(1)
	}
	fmt.Println("PASSED: Cache endpoints")

	fmt.Println("Integration Test Complete.")
}

func sendRequest(method, path string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("Error marshaling payload: %v\n", err)
			return false
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Unexpected status %d: %s\n", resp.StatusCode, string(data))
		return false
	}
	if len(data) > 200 {
		data = data[:200]
	}
	fmt.Printf("Response: %s...\n", string(data))
	return true
}
