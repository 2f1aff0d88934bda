// Command benchmark is a flag-driven concurrent load generator against
// POST /api/v1/transfers, adapted from the teacher's cmd/benchmark. Two
// differences from the teacher's version: account ids are UUIDs fetched
// from the database rather than assumed sequential integers, and outcomes
// are classified into the four statuses the executor can actually produce
// (201 created, 200 idempotent replay, 422 domain rejection, 500 system
// fault) instead of collapsing everything but 201/200/409 into "errors".
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	targetURL   string
	dbSource    string
	concurrency int
	duration    time.Duration
	workload    string
)

var (
	totalRequests  uint64
	successCreated uint64 // 201
	successReplay  uint64 // 200
	rejected       uint64 // 422
	systemFaults   uint64 // 500
	transportErr   uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API base URL")
	flag.StringVar(&dbSource, "db-source", os.Getenv("DB_SOURCE"), "Postgres DSN to fetch seeded account ids from")
	flag.IntVar(&concurrency, "workers", 10, "number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "test duration")
	flag.StringVar(&workload, "workload", "uniform", "workload type: uniform | hotspot")
}

func main() {
	flag.Parse()
	if dbSource == "" {
		log.Fatal("db-source (or DB_SOURCE) is required to load seeded account ids")
	}

	accounts, initiator := loadAccounts(dbSource)
	if len(accounts) < 2 {
		log.Fatalf("need at least 2 seeded accounts, found %d", len(accounts))
	}

	log.Printf("starting benchmark: %s | workers: %d | duration: %s | accounts: %d", workload, concurrency, duration, len(accounts))

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, accounts, initiator)
	}
	wg.Wait()

	printResults(time.Since(start))
}

func loadAccounts(dsn string) ([]uuid.UUID, uuid.UUID) {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `SELECT account_id, user_id FROM accounts LIMIT 1000`)
	if err != nil {
		log.Fatalf("query accounts: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	var initiator uuid.UUID
	for rows.Next() {
		var id, owner uuid.UUID
		if err := rows.Scan(&id, &owner); err != nil {
			log.Fatalf("scan account: %v", err)
		}
		ids = append(ids, id)
		initiator = owner
	}
	return ids, initiator
}

func worker(wg *sync.WaitGroup, start time.Time, accounts []uuid.UUID, initiator uuid.UUID) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		from, to := pickAccounts(accounts)
		key := uuid.New().String()

		payload := map[string]any{
			"initiator_user_id": initiator,
			"from_account_id":   from,
			"to_account_id":     to,
			"amount":            int64(100),
		}
		body, _ := json.Marshal(payload)

		req, err := http.NewRequest(http.MethodPost, targetURL+"/api/v1/transfers", bytes.NewReader(body))
		if err != nil {
			atomic.AddUint64(&transportErr, 1)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&transportErr, 1)
			continue
		}
		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case http.StatusCreated:
			atomic.AddUint64(&successCreated, 1)
		case http.StatusOK:
			atomic.AddUint64(&successReplay, 1)
		case http.StatusUnprocessableEntity:
			atomic.AddUint64(&rejected, 1)
		case http.StatusInternalServerError:
			atomic.AddUint64(&systemFaults, 1)
		default:
			atomic.AddUint64(&transportErr, 1)
		}
		resp.Body.Close()
	}
}

func pickAccounts(accounts []uuid.UUID) (uuid.UUID, uuid.UUID) {
	n := len(accounts)
	if workload == "hotspot" && rand.Float32() < 0.90 {
		if rand.Float32() < 0.5 {
			return accounts[0], accounts[1]
		}
		return accounts[1], accounts[0]
	}
	a := rand.Intn(n)
	b := rand.Intn(n)
	for a == b {
		b = rand.Intn(n)
	}
	return accounts[a], accounts[b]
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	created := atomic.LoadUint64(&successCreated)
	replay := atomic.LoadUint64(&successReplay)
	rej := atomic.LoadUint64(&rejected)
	faults := atomic.LoadUint64(&systemFaults)
	errs := atomic.LoadUint64(&transportErr)

	var tps float64
	if d.Seconds() > 0 {
		tps = float64(total) / d.Seconds()
	}

	results := map[string]any{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   tps,
		"success_created":  created,
		"success_replay":   replay,
		"rejected":         rej,
		"system_faults":    faults,
		"transport_errors": errs,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("could not write results file: %v", err)
		return
	}
	defer file.Close()
	_ = json.NewEncoder(file).Encode(results)
}
