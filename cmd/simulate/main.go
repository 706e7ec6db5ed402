// Simulator drives the booking API with concurrent synthetic patients:
// fast-lane matching runs, direct slot bookings, and list reads. It
// reports per-operation latency percentiles at the end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/curalink/patient-booking/pkg/logging"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	MatchingRatio float64
	BookingRatio  float64
	ReadRatio     float64
	PollInterval  time.Duration
	PollTimeout   time.Duration
}

type doctor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	City      string    `json:"city"`
}

type slotsResponse struct {
	Slots []struct {
		Date string `json:"date"`
		Time string `json:"time"`
	} `json:"slots"`
}

type operationResponse struct {
	ID   uuid.UUID `json:"id"`
	Done bool      `json:"done"`
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	max = latencies[len(latencies)-1]
	return avg, p50, p95, max
}

type Metrics struct {
	Matching OperationMetrics
	Booking  OperationMetrics
	List     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	logger  *logging.Logger
	doctors []doctor
	metrics Metrics
}

func main() {
	logger := logging.Default()
	logger.Info("simulator starting")

	cfg := loadConfig()
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		logger.Error("SIM_WORKERS and SIM_DURATION must be positive")
		os.Exit(1)
	}

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	if err := sim.loadDoctors(); err != nil {
		logger.Error("load doctors", "error", err)
		os.Exit(1)
	}
	logger.Info("doctors loaded", "count", len(sim.doctors))

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 2*time.Minute),
		Workers:       getInt("SIM_WORKERS", 8),
		MatchingRatio: getFloat("SIM_MATCHING_RATIO", 0.3),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.3),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.4),
		PollInterval:  getDuration("SIM_POLL_INTERVAL", 2*time.Second),
		PollTimeout:   getDuration("SIM_POLL_TIMEOUT", 90*time.Second),
	}

	total := cfg.MatchingRatio + cfg.BookingRatio + cfg.ReadRatio
	if total > 0 {
		cfg.MatchingRatio /= total
		cfg.BookingRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func (s *Simulator) loadDoctors() error {
	resp, err := s.client.Get(s.config.APIBaseURL + "/doctors")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /doctors returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&s.doctors); err != nil {
		return err
	}
	if len(s.doctors) == 0 {
		return fmt.Errorf("no doctors available, run the seed first")
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("simulation running", "duration", s.config.Duration, "workers", s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	patientID := uuid.New()
	patientName := gofakeit.Name()

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.MatchingRatio:
			s.doMatching(ctx, rng, patientID, patientName)
		case r < s.config.MatchingRatio+s.config.BookingRatio:
			s.doBooking(ctx, rng, patientID, patientName)
		default:
			s.doList(ctx, patientID)
		}
	}
}

func (s *Simulator) doMatching(ctx context.Context, rng *rand.Rand, patientID uuid.UUID, patientName string) {
	doc := s.doctors[rng.Intn(len(s.doctors))]
	body := map[string]any{
		"booking_type": "fast_lane",
		"specialty":    doc.Specialty,
		"city":         doc.City,
		"insurance":    "GKV",
		"patient_name": patientName,
	}

	start := time.Now()
	status, raw := s.post(ctx, fmt.Sprintf("/patients/%s/matching", patientID), body)
	if status != http.StatusAccepted {
		s.metrics.Matching.Record(time.Since(start), status)
		return
	}

	var op operationResponse
	if err := json.Unmarshal(raw, &op); err != nil {
		s.metrics.Matching.Record(time.Since(start), http.StatusInternalServerError)
		return
	}

	// A matching run takes tens of seconds; poll until it settles.
	deadline := time.Now().Add(s.config.PollTimeout)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-time.After(s.config.PollInterval):
		}

		status, raw = s.get(ctx, fmt.Sprintf("/patients/%s/matching/%s", patientID, op.ID))
		if status != http.StatusOK {
			break
		}
		if err := json.Unmarshal(raw, &op); err != nil || op.Done {
			break
		}
	}
	s.metrics.Matching.Record(time.Since(start), status)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, patientID uuid.UUID, patientName string) {
	doc := s.doctors[rng.Intn(len(s.doctors))]
	date := time.Now().AddDate(0, 0, 1+rng.Intn(7)).Format("2006-01-02")

	status, raw := s.get(ctx, fmt.Sprintf("/doctors/%s/slots?date=%s", doc.ID, date))
	if status != http.StatusOK {
		return
	}
	var sr slotsResponse
	if err := json.Unmarshal(raw, &sr); err != nil || len(sr.Slots) == 0 {
		return
	}
	slot := sr.Slots[rng.Intn(len(sr.Slots))]

	body := map[string]any{
		"doctor_id":    doc.ID.String(),
		"date":         slot.Date,
		"time":         slot.Time,
		"patient_name": patientName,
	}

	start := time.Now()
	status, _ = s.post(ctx, fmt.Sprintf("/patients/%s/appointments", patientID), body)
	s.metrics.Booking.Record(time.Since(start), status)
}

func (s *Simulator) doList(ctx context.Context, patientID uuid.UUID) {
	start := time.Now()
	status, _ := s.get(ctx, fmt.Sprintf("/patients/%s/appointments", patientID))
	s.metrics.List.Record(time.Since(start), status)
}

func (s *Simulator) post(ctx context.Context, path string, body any) (int, []byte) {
	buf, err := json.Marshal(body)
	if err != nil {
		return 0, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return 0, nil
	}
	req.Header.Set("Content-Type", "application/json")
	return s.send(req)
}

func (s *Simulator) get(ctx context.Context, path string) (int, []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return 0, nil
	}
	return s.send(req)
}

func (s *Simulator) send(req *http.Request) (int, []byte) {
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println("=== simulation report ===")
	printOp("matching", &s.metrics.Matching)
	printOp("booking", &s.metrics.Booking)
	printOp("list", &s.metrics.List)
}

func printOp(name string, om *OperationMetrics) {
	avg, p50, p95, max := om.Stats()
	fmt.Printf("%-10s total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s max=%s\n",
		name,
		atomic.LoadInt64(&om.Total),
		atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Conflict),
		atomic.LoadInt64(&om.Error),
		avg, p50, p95, max)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
