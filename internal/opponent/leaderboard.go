// Package opponent supplies AI opponents: a name drawn from the public
// leaderboard and a roster of generated cards.
package opponent

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/DonQuixuote/shape-tcg/internal/clock"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/dedupe"
	"github.com/DonQuixuote/shape-tcg/internal/keys"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

// DefaultLeaderboardURL is the published leaderboard export.
const DefaultLeaderboardURL = "https://hebbkx1anhila5yf.public.blob.vercel-storage.com/leaderboard-3bNfd7BAMK1XF6D3bX1qJskJTlVMcV.csv"

var ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")

// Entry is one leaderboard row.
type Entry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Address  string `json:"address"`
}

// ParseCSV reads "rank,username,address" rows. The first row is a header.
// Rows with fewer than three columns or without a username are skipped.
func ParseCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []Entry
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse leaderboard: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(rec) < 3 {
			continue
		}
		name := norm.NFC.String(strings.TrimSpace(rec[1]))
		if name == "" {
			continue
		}
		rank, _ := strconv.Atoi(strings.TrimSpace(rec[0]))
		out = append(out, Entry{Rank: rank, Username: name, Address: keys.Owner(rec[2])})
	}
	return out, nil
}

// Leaderboard downloads and caches the leaderboard export. Concurrent
// refreshes of the same URL share one download.
type Leaderboard struct {
	url    string
	ttl    time.Duration
	clock  clock.Clock
	client *http.Client

	mu        sync.Mutex
	entries   []Entry
	fetchedAt time.Time
}

func NewLeaderboard(url string, ttl time.Duration, c clock.Clock, client *http.Client) *Leaderboard {
	if url == "" {
		url = DefaultLeaderboardURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Leaderboard{url: url, ttl: ttl, clock: c, client: client}
}

// Entries returns the cached leaderboard, refreshing it once the cache
// expired. A failed refresh surfaces the error; stale entries are not served.
func (l *Leaderboard) Entries(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	if l.entries != nil && l.clock.Now().Sub(l.fetchedAt) < l.ttl {
		out := l.entries
		l.mu.Unlock()
		return out, nil
	}
	l.mu.Unlock()

	ch := dedupe.LeaderboardGroup.DoChan(l.url, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), l.client.Timeout+time.Second)
		defer cancel()
		entries, err := l.fetch(fetchCtx)
		if err != nil {
			logging.Error("leaderboard fetch failed", err, logging.Fields{constants.LogFieldSource: l.url})
			return nil, err
		}
		l.mu.Lock()
		l.entries = entries
		l.fetchedAt = l.clock.Now()
		l.mu.Unlock()
		logging.Info("leaderboard refreshed", logging.Fields{constants.LogFieldSource: l.url, "entries": len(entries)})
		return entries, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]Entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Leaderboard) fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLeaderboardUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLeaderboardUnavailable, resp.StatusCode)
	}
	entries, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Lookup finds the leaderboard row of a wallet address.
func (l *Leaderboard) Lookup(ctx context.Context, address string) (Entry, bool, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	addr := keys.Owner(address)
	for _, e := range entries {
		if e.Address == addr {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}
