package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	targetURL := flag.String("url", "http://localhost:8080/lookup", "Lookup endpoint")
	token := flag.String("token", "", "Bearer token of a signed-in user")
	cookieName := flag.String("session-cookie", "portal_session", "Session cookie name")
	meterPrefix := flag.String("meter-prefix", "MTR-", "Prefix of generated meter numbers")
	meters := flag.Int("meters", 1000, "Number of distinct meter numbers to cycle through")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	flag.Parse()

	if *token == "" {
		log.Fatal("-token is required, lookups need a signed-in user")
	}

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var okCount, invalidCount, limitedCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}
			sessionID := uuid.NewString()

			for n := 0; ; n++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				meter := fmt.Sprintf("%s%d", *meterPrefix, (workerID*7919+n)%*meters)
				payload := fmt.Sprintf(`{"meter_number": %q}`, meter)

				req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
				if err != nil {
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+*token)
				req.AddCookie(&http.Cookie{Name: *cookieName, Value: sessionID})

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errorCount.Add(1)
					continue
				}

				switch resp.StatusCode {
				case http.StatusOK:
					okCount.Add(1)
				case http.StatusUnprocessableEntity:
					invalidCount.Add(1)
				case http.StatusTooManyRequests:
					limitedCount.Add(1)
				default:
					errorCount.Add(1)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()

	totalRequests := okCount.Load() + invalidCount.Load() + limitedCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Resolved (200): %d", okCount.Load())
	log.Printf("Rejected input (422): %d", invalidCount.Load())
	log.Printf("Rate limited (429): %d", limitedCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
