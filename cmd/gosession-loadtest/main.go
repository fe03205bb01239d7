package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/provider/memory"
	"github.com/MrEthical07/goSession/store/redisstore"
)

const loadtestPassword = "loadtest-password"

var errWaitTimeout = errors.New("timed out waiting for state")

type client struct {
	mu       sync.Mutex
	manager  *goSession.Manager
	provider *memory.Provider
	users    []goSession.User
}

func main() {
	var (
		managers     = flag.Int("managers", 64, "number of concurrent Manager instances")
		usersPer     = flag.Int("users", 4, "users registered per Manager")
		profilesPer  = flag.Int("profiles", 3, "profiles seeded per user")
		concurrency  = flag.Int("concurrency", 32, "number of concurrent workers")
		ops          = flag.Int("ops", 5000, "operations per phase")
		redisAddr    = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix       = flag.String("prefix", "gsload", "profile key prefix")
		stateTimeout = flag.Duration("state-timeout", 5*time.Second, "max wait for a state transition")
	)
	flag.Parse()

	if *managers <= 0 || *usersPer <= 0 || *profilesPer <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "managers, users, profiles, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := redisstore.New(rdb, *prefix)

	fmt.Printf("seeding %d managers x %d users...\n", *managers, *usersPer)
	startSeed := time.Now()
	clients, err := seed(ctx, store, *managers, *usersPer, *profilesPer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range clients {
			c.manager.Close()
		}
	}()
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	signIn := runPhase(clients, *ops, *concurrency, func(r *rand.Rand, c *client) error {
		u := c.users[r.Intn(len(c.users))]
		if _, err := c.manager.Login(ctx, u.Email, loadtestPassword); err != nil {
			return err
		}
		return waitFor(c.manager, *stateTimeout, func(s goSession.State) bool {
			return s.User != nil && s.User.ID == u.ID && s.ActiveProfile != nil
		})
	})

	switchPhase := runPhase(clients, *ops, *concurrency, func(r *rand.Rand, c *client) error {
		s := c.manager.State()
		if len(s.Profiles) == 0 {
			return goSession.ErrNotAuthenticated
		}
		target := s.Profiles[r.Intn(len(s.Profiles))]
		_, err := c.manager.SwitchProfile(ctx, target.ID)
		return err
	})

	churn := runPhase(clients, *ops, *concurrency, func(r *rand.Rand, c *client) error {
		if !c.manager.State().IsAuthenticated() {
			u := c.users[r.Intn(len(c.users))]
			if _, err := c.manager.Login(ctx, u.Email, loadtestPassword); err != nil {
				return err
			}
		}
		loaded := c.manager.MetricsSnapshot().Counters[goSession.MetricProfileLoadSuccess]
		c.manager.Deactivate()
		if err := c.manager.Activate(ctx); err != nil {
			return err
		}
		return waitCounter(c.manager, goSession.MetricProfileLoadSuccess, loaded+1, *stateTimeout)
	})

	fmt.Println("---- results ----")
	printStats("signin", signIn)
	printStats("switch", switchPhase)
	printStats("churn", churn)
	printCounters(clients)
}

func seed(ctx context.Context, store *redisstore.Store, managers, usersPer, profilesPer int) ([]*client, error) {
	pw := password.DefaultConfig()
	pw.Memory = 8 * 1024
	pw.Time = 1
	pw.Parallelism = 1

	cfg := goSession.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	clients := make([]*client, 0, managers)
	for i := 0; i < managers; i++ {
		provider, err := memory.New(memory.WithPasswordConfig(pw))
		if err != nil {
			return nil, err
		}

		c := &client{provider: provider}
		for j := 0; j < usersPer; j++ {
			email := fmt.Sprintf("user-%d-%d@loadtest.local", i, j)
			u, err := provider.AddUser(email, loadtestPassword, goSession.UserMetadata{FirstName: "Load", LastName: "Test"})
			if err != nil {
				return nil, err
			}
			if err := store.PutProfiles(ctx, u.ID, profilesFor(u.ID, profilesPer)); err != nil {
				return nil, err
			}
			c.users = append(c.users, u)
		}

		m, err := goSession.New().
			WithConfig(cfg).
			WithIdentityProvider(provider).
			WithProfileStore(store).
			Build()
		if err != nil {
			return nil, err
		}
		if err := m.Activate(ctx); err != nil {
			return nil, err
		}
		c.manager = m
		clients = append(clients, c)
	}
	return clients, nil
}

func profilesFor(userID string, n int) []goSession.Profile {
	types := []goSession.ProfileType{
		goSession.ProfileTypeMember,
		goSession.ProfileTypeCoach,
		goSession.ProfileTypeNavigator,
		goSession.ProfileTypeAdmin,
	}
	out := make([]goSession.Profile, n)
	for i := range out {
		out[i] = goSession.Profile{
			ID:   fmt.Sprintf("%s-p%d", userID, i),
			Name: fmt.Sprintf("Profile %d", i),
			Type: types[i%len(types)],
		}
	}
	return out
}

// waitFor blocks until cond holds for a published snapshot or timeout passes.
func waitFor(m *goSession.Manager, timeout time.Duration, cond func(goSession.State) bool) error {
	ch, cancel := m.Watch(1)
	defer cancel()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return goSession.ErrManagerClosed
			}
			if cond(s) {
				return nil
			}
		case <-deadline.C:
			return errWaitTimeout
		}
	}
}

// waitCounter polls until counter id reaches want. Reactivation reuses the
// cached snapshot, so completion is only observable through the counters.
func waitCounter(m *goSession.Manager, id goSession.MetricID, want uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.MetricsSnapshot().Counters[id] >= want {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return errWaitTimeout
}

func runPhase(clients []*client, ops, concurrency int, op func(*rand.Rand, *client) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := clients[r.Intn(len(clients))]

				c.mu.Lock()
				t0 := time.Now()
				err := op(r, c)
				d := time.Since(t0)
				c.mu.Unlock()

				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func printCounters(clients []*client) {
	totals := make(map[goSession.MetricID]uint64, len(internaldefs.CounterDefs))
	for _, c := range clients {
		for id, v := range c.manager.MetricsSnapshot().Counters {
			totals[id] += v
		}
	}

	fmt.Println("---- manager counters ----")
	for _, def := range internaldefs.CounterDefs {
		if v := totals[def.ID]; v > 0 {
			fmt.Printf("%s %d\n", def.Name, v)
		}
	}
}
