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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/logging"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	Nurses        int
	Patients      int
	Password      string
	AdminEmail    string
	AdminPassword string
	RaceRatio     float64
}

type user struct {
	ID        uuid.UUID
	Email     string
	Token     string
	ListingID uuid.UUID
}

type booking struct {
	ID      uuid.UUID
	Patient int
	Nurse   int
}

// DataPool hands each booking to one worker at a time by popping it from
// the queue for its current stage.
type DataPool struct {
	Patients []user
	Nurses   []user
	Admin    *user

	mu        sync.Mutex
	pending   []booking
	confirmed []booking
	completed []booking
	ratings   map[int][]int
}

func (dp *DataPool) push(queue *[]booking, b booking) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	*queue = append(*queue, b)
}

func (dp *DataPool) pop(queue *[]booking, rng *rand.Rand) (booking, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(*queue) == 0 {
		return booking{}, false
	}
	i := rng.Intn(len(*queue))
	b := (*queue)[i]
	(*queue)[i] = (*queue)[len(*queue)-1]
	*queue = (*queue)[:len(*queue)-1]
	return b, true
}

func (dp *DataPool) recordRating(nurse, rating int) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.ratings[nurse] = append(dp.ratings[nurse], rating)
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking  OperationMetrics
	Accept   OperationMetrics
	Decline  OperationMetrics
	Cancel   OperationMetrics
	Complete OperationMetrics
	Rate     OperationMetrics
	Read     OperationMetrics

	// invariant breaches observed during racing requests
	DoubleAccepts int64
	DoubleRatings int64
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     zerolog.Logger
}

type idRef struct {
	ID uuid.UUID `json:"id"`
}

type listingRating struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

type apiResponse struct {
	OK          bool                     `json:"ok"`
	Error       string                   `json:"error"`
	Token       string                   `json:"token"`
	Account     *idRef                   `json:"account"`
	Listing     *idRef                   `json:"listing"`
	Appointment *appointment.Appointment `json:"appointment"`
	Nurse       *listingRating           `json:"nurse"`
}

func main() {
	logger := logging.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"), "simulate")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Int("nurses", cfg.Nurses).
		Int("patients", cfg.Patients).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		pool:   &DataPool{ratings: make(map[int][]int)},
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := sim.Setup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}

	sim.Run()
	sim.PrintReport()

	if !sim.Verify(context.Background()) {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:    strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		Nurses:        getInt("SIM_NURSES", 5),
		Patients:      getInt("SIM_PATIENTS", 40),
		Password:      getEnv("SIM_PASSWORD", "simulate123"),
		AdminEmail:    getEnv("SIM_ADMIN_EMAIL", "admin@wecare.test"),
		AdminPassword: getEnv("SIM_ADMIN_PASSWORD", "wecare123"),
		RaceRatio:     getFloat("SIM_RACE_RATIO", 0.2),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Nurses <= 0 || cfg.Patients <= 0 {
		return fmt.Errorf("SIM_NURSES and SIM_PATIENTS must be > 0")
	}
	return nil
}

// Setup signs up a fresh cast for this run so every rating a simulated nurse
// holds at the end was produced by the run itself.
func (s *Simulator) Setup(ctx context.Context) error {
	run := uuid.NewString()[:8]

	for i := 0; i < s.config.Nurses; i++ {
		u, err := s.signup(ctx, "nurse", run, i)
		if err != nil {
			return err
		}

		var me apiResponse
		if _, err := s.call(ctx, http.MethodGet, "/api/me", u.Token, nil, &me); err != nil {
			return err
		}
		if me.Listing == nil {
			return fmt.Errorf("nurse %s has no listing", u.Email)
		}
		u.ListingID = me.Listing.ID
		s.pool.Nurses = append(s.pool.Nurses, u)
	}

	for i := 0; i < s.config.Patients; i++ {
		u, err := s.signup(ctx, "patient", run, i)
		if err != nil {
			return err
		}
		s.pool.Patients = append(s.pool.Patients, u)
	}

	var login apiResponse
	status, err := s.call(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"email":    s.config.AdminEmail,
		"password": s.config.AdminPassword,
	}, &login)
	switch {
	case err != nil:
		return err
	case status != http.StatusOK:
		s.log.Warn().Str("email", s.config.AdminEmail).Msg("admin login failed, completion and rating are disabled")
	default:
		s.pool.Admin = &user{ID: login.Account.ID, Email: s.config.AdminEmail, Token: login.Token}
	}

	s.log.Info().
		Int("nurses", len(s.pool.Nurses)).
		Int("patients", len(s.pool.Patients)).
		Bool("admin", s.pool.Admin != nil).
		Msg("cast ready")
	return nil
}

func (s *Simulator) signup(ctx context.Context, role, run string, i int) (user, error) {
	email := fmt.Sprintf("sim-%s-%s-%d@wecare.test", run, role, i)

	var resp apiResponse
	status, err := s.call(ctx, http.MethodPost, "/api/signup", "", map[string]string{
		"email":    email,
		"password": s.config.Password,
		"name":     gofakeit.Name(),
		"role":     role,
	}, &resp)
	if err != nil {
		return user{}, err
	}
	if status != http.StatusCreated || resp.Account == nil {
		return user{}, fmt.Errorf("signup %s: status %d %s", email, status, resp.Error)
	}
	return user{ID: resp.Account.ID, Email: email, Token: resp.Token}, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch r := rng.Intn(100); {
		case r < 30:
			s.doBooking(ctx, rng)
		case r < 50:
			s.doAccept(ctx, rng)
		case r < 55:
			s.doDecline(ctx, rng)
		case r < 60:
			s.doCancel(ctx, rng)
		case r < 75:
			s.doComplete(ctx, rng)
		case r < 90:
			s.doRate(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	pi := rng.Intn(len(s.pool.Patients))
	ni := rng.Intn(len(s.pool.Nurses))

	prices := appointment.ServicePrices()
	types := []appointment.ServiceType{appointment.ServiceConsultation, appointment.ServiceHomeVisit, appointment.ServiceEmergency}
	st := types[rng.Intn(len(types))]

	start := time.Now()
	var resp apiResponse
	status, err := s.call(ctx, http.MethodPost, "/api/appointments", s.pool.Patients[pi].Token, map[string]any{
		"nurseId":         s.pool.Nurses[ni].ListingID,
		"serviceType":     st,
		"servicePrice":    prices[st],
		"appointmentDate": time.Now().AddDate(0, 0, rng.Intn(30)).Format("2006-01-02"),
		"appointmentTime": fmt.Sprintf("%02d:00 AM", 8+rng.Intn(4)),
		"paymentMethod":   "card",
	}, &resp)
	latency := time.Since(start)

	ok := err == nil && status == http.StatusCreated && resp.Appointment != nil
	if ok {
		s.pool.push(&s.pool.pending, booking{ID: resp.Appointment.ID, Patient: pi, Nurse: ni})
	}
	s.metrics.Booking.Record(latency, ok, status == http.StatusConflict)
}

// doAccept sometimes fires the same accept twice at once. Exactly one of the
// pair may win.
func (s *Simulator) doAccept(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.pop(&s.pool.pending, rng)
	if !ok {
		return
	}
	path := fmt.Sprintf("/api/nurse/appointments/%s/accept", b.ID)
	token := s.pool.Nurses[b.Nurse].Token

	attempts := 1
	if rng.Float64() < s.config.RaceRatio {
		attempts = 2
	}

	wins := s.race(ctx, attempts, http.MethodPost, path, token, nil, &s.metrics.Accept)
	if wins > 1 {
		atomic.AddInt64(&s.metrics.DoubleAccepts, 1)
	}
	if wins > 0 {
		s.pool.push(&s.pool.confirmed, b)
	}
}

func (s *Simulator) doDecline(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.pop(&s.pool.pending, rng)
	if !ok {
		return
	}
	path := fmt.Sprintf("/api/nurse/appointments/%s/decline", b.ID)
	s.race(ctx, 1, http.MethodPost, path, s.pool.Nurses[b.Nurse].Token, nil, &s.metrics.Decline)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.pop(&s.pool.pending, rng)
	if !ok {
		return
	}
	path := fmt.Sprintf("/api/appointments/%s/cancel", b.ID)
	s.race(ctx, 1, http.MethodPost, path, s.pool.Patients[b.Patient].Token, nil, &s.metrics.Cancel)
}

func (s *Simulator) doComplete(ctx context.Context, rng *rand.Rand) {
	if s.pool.Admin == nil {
		return
	}
	b, ok := s.pool.pop(&s.pool.confirmed, rng)
	if !ok {
		return
	}
	path := fmt.Sprintf("/api/admin/appointments/%s/complete", b.ID)
	if s.race(ctx, 1, http.MethodPost, path, s.pool.Admin.Token, nil, &s.metrics.Complete) > 0 {
		s.pool.push(&s.pool.completed, b)
	}
}

// doRate rates a completed appointment, sometimes twice concurrently. Only
// the winning rating is remembered for verification.
func (s *Simulator) doRate(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.pop(&s.pool.completed, rng)
	if !ok {
		return
	}
	path := fmt.Sprintf("/api/appointments/%s/rate", b.ID)
	rating := 1 + rng.Intn(5)

	attempts := 1
	if rng.Float64() < s.config.RaceRatio {
		attempts = 2
	}

	body := map[string]any{"rating": rating, "feedback": "simulated visit"}
	wins := s.race(ctx, attempts, http.MethodPost, path, s.pool.Patients[b.Patient].Token, body, &s.metrics.Rate)
	if wins > 1 {
		atomic.AddInt64(&s.metrics.DoubleRatings, 1)
	}
	if wins > 0 {
		s.pool.recordRating(b.Nurse, rating)
	} else if attempts == 1 {
		// busy or transient; try again later
		s.pool.push(&s.pool.completed, b)
	}
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	start := time.Now()
	var status int
	var err error
	if rng.Intn(2) == 0 {
		status, err = s.call(ctx, http.MethodGet, "/api/appointments", s.pool.Patients[rng.Intn(len(s.pool.Patients))].Token, nil, nil)
	} else {
		status, err = s.call(ctx, http.MethodGet, "/api/nurses", "", nil, nil)
	}
	s.metrics.Read.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

// race sends n identical requests at once and returns how many got 200.
func (s *Simulator) race(ctx context.Context, n int, method, path, token string, body any, om *OperationMetrics) int {
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			status, err := s.call(ctx, method, path, token, body, nil)
			ok := err == nil && status == http.StatusOK
			if ok {
				atomic.AddInt64(&wins, 1)
			}
			om.Record(time.Since(start), ok, status == http.StatusConflict)
		}()
	}
	wg.Wait()
	return int(wins)
}

// Verify compares each simulated nurse's published rating with the mean of
// the ratings the run actually landed.
func (s *Simulator) Verify(ctx context.Context) bool {
	healthy := true

	if n := atomic.LoadInt64(&s.metrics.DoubleAccepts); n > 0 {
		s.log.Error().Int64("count", n).Msg("appointments accepted twice")
		healthy = false
	}
	if n := atomic.LoadInt64(&s.metrics.DoubleRatings); n > 0 {
		s.log.Error().Int64("count", n).Msg("appointments rated twice")
		healthy = false
	}

	for i, nurse := range s.pool.Nurses {
		ratings := s.pool.ratings[i]
		want := appointment.AggregateRating(ratings)

		var resp apiResponse
		status, err := s.call(ctx, http.MethodGet, "/api/nurses/"+nurse.ListingID.String(), "", nil, &resp)
		if err != nil || status != http.StatusOK || resp.Nurse == nil {
			s.log.Error().Err(err).Int("status", status).Str("nurse", nurse.Email).Msg("could not load listing")
			healthy = false
			continue
		}

		if len(ratings) == 0 {
			continue
		}
		if resp.Nurse.Rating != want || resp.Nurse.ReviewCount != len(ratings) {
			s.log.Error().
				Str("nurse", nurse.Email).
				Float64("rating", resp.Nurse.Rating).
				Float64("expected_rating", want).
				Int("review_count", resp.Nurse.ReviewCount).
				Int("expected_count", len(ratings)).
				Msg("rating aggregate mismatch")
			healthy = false
		}
	}

	if healthy {
		s.log.Info().Msg("consistency checks passed")
	}
	return healthy
}

func (s *Simulator) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Accept", &s.metrics.Accept)
	printOperationReport("Decline", &s.metrics.Decline)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Complete", &s.metrics.Complete)
	printOperationReport("Rate", &s.metrics.Rate)
	printOperationReport("Read", &s.metrics.Read)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
