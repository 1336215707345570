package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type eventView struct {
	TotalSeats      int `json:"total_seats"`
	RegisteredCount int `json:"registered_count"`
	AvailableSeats  int `json:"available_seats"`
}

type attempt struct {
	Status   int
	Code     string
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base       string
		eventID    string
		tokensPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including the prefix")
	flag.StringVar(&eventID, "event", "", "Event ID to contend for")
	flag.StringVar(&tokensPath, "tokens", "tokens.txt", "File with one student bearer token per line")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if eventID == "" {
		log.Fatal("-event is required")
	}
	tokens, err := loadTokens(tokensPath)
	if err != nil {
		log.Fatalf("failed to load tokens: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	before, err := fetchEvent(client, base, eventID)
	if err != nil {
		log.Fatalf("failed to read event: %v", err)
	}

	attempts := make([]attempt, len(tokens))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			<-start
			attempts[i] = register(client, base, eventID, token)
		}(i, token)
	}
	close(start)
	wg.Wait()

	after, err := fetchEvent(client, base, eventID)
	if err != nil {
		log.Fatalf("failed to re-read event: %v", err)
	}

	accepted := printReport(attempts)
	fmt.Printf("Seats: %d | registered before: %d | after: %d | accepted now: %d\n",
		after.TotalSeats, before.RegisteredCount, after.RegisteredCount, accepted)

	var failures []string
	if after.RegisteredCount > after.TotalSeats {
		failures = append(failures, "registered count exceeds total seats")
	}
	if after.RegisteredCount != before.RegisteredCount+accepted {
		failures = append(failures, "registered count does not match accepted registrations")
	}
	if after.AvailableSeats != after.TotalSeats-after.RegisteredCount {
		failures = append(failures, "available seats is not total minus registered")
	}
	if len(failures) > 0 {
		for _, f := range failures {
			fmt.Printf("FAIL: %s\n", f)
		}
		os.Exit(1)
	}
	fmt.Println("OK: no over-booking observed")
}

func loadTokens(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens in %s", path)
	}
	return tokens, nil
}

func register(client *http.Client, base, eventID, token string) attempt {
	url := strings.TrimRight(base, "/") + "/registrations/events/" + eventID
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return attempt{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return attempt{Err: err, Duration: time.Since(started)}
	}
	defer resp.Body.Close()

	res := attempt{Status: resp.StatusCode, Duration: time.Since(started)}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != nil {
		res.Code = env.Error.Code
	}
	return res
}

func fetchEvent(client *http.Client, base, eventID string) (*eventView, error) {
	resp, err := client.Get(strings.TrimRight(base, "/") + "/events/" + eventID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, errors.New("empty event payload")
	}
	var view eventView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func printReport(attempts []attempt) int {
	fmt.Println("Seat Contention Report")
	fmt.Println("======================")

	outcomes := map[string]int{}
	accepted := 0
	var slowest time.Duration
	for _, a := range attempts {
		key := fmt.Sprintf("%d", a.Status)
		switch {
		case a.Err != nil:
			key = "transport error"
		case a.Status == http.StatusCreated:
			accepted++
		case a.Code != "":
			key = fmt.Sprintf("%d %s", a.Status, a.Code)
		}
		outcomes[key]++
		if a.Duration > slowest {
			slowest = a.Duration
		}
	}

	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-28s %d\n", k, outcomes[k])
	}
	fmt.Printf("  Slowest request: %s\n", slowest)
	return accepted
}
