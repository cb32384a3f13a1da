// Package codeforces is a small client for the Codeforces API used to verify
// handles and accepted submissions.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
)

const (
	DefaultBaseURL = "https://codeforces.com/api"

	handleTTL  = 10 * time.Minute
	problemTTL = 5 * time.Minute
	cacheSize  = 1024
)

// ErrAPI is returned when the API answers with a non-OK status.
var ErrAPI = errors.New("codeforces api error")

// Client talks to the Codeforces API. Handle and problem lookups are cached;
// submission checks never are.
type Client struct {
	baseURL  string
	httpC    *http.Client
	handles  *expirable.LRU[string, bool]
	problems *expirable.LRU[int, []model.Problem]
}

// NewClient creates a client for baseURL. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpC:    &http.Client{Timeout: timeout},
		handles:  expirable.NewLRU[string, bool](cacheSize, nil, handleTTL),
		problems: expirable.NewLRU[int, []model.Problem](cacheSize, nil, problemTTL),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type apiProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

type submission struct {
	ID      int64      `json:"id"`
	Verdict string     `json:"verdict"`
	Problem apiProblem `json:"problem"`
}

// call GETs method and decodes the envelope. FAILED responses are returned
// with ErrAPI so callers can inspect the comment.
func (c *Client) call(ctx context.Context, method string, params url.Values) (*envelope, error) {
	u := c.baseURL + "/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	resp, err := c.httpC.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s status %d: %s", method, resp.StatusCode, body)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if env.Status != "OK" {
		return &env, fmt.Errorf("%w: %s: %s", ErrAPI, method, env.Comment)
	}
	return &env, nil
}

// HandleExists reports whether handle is a registered user.
func (c *Client) HandleExists(ctx context.Context, handle string) (bool, error) {
	key := strings.ToLower(handle)
	if v, ok := c.handles.Get(key); ok {
		return v, nil
	}
	env, err := c.call(ctx, "user.info", url.Values{"handles": {handle}})
	switch {
	case err == nil:
		c.handles.Add(key, true)
		return true, nil
	case errors.Is(err, ErrAPI) && strings.Contains(strings.ToLower(env.Comment), "not found"):
		c.handles.Add(key, false)
		return false, nil
	default:
		return false, err
	}
}

// HasAcceptedSubmission scans the user's last withinLastN submissions for an
// OK verdict on contestID/index.
func (c *Client) HasAcceptedSubmission(ctx context.Context, handle string, contestID int, index string, withinLastN int) (bool, error) {
	if withinLastN <= 0 {
		withinLastN = 10
	}
	env, err := c.call(ctx, "user.status", url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {strconv.Itoa(withinLastN)},
	})
	if err != nil {
		return false, err
	}
	var subs []submission
	if err := json.Unmarshal(env.Result, &subs); err != nil {
		return false, fmt.Errorf("decode submissions: %w", err)
	}
	for _, s := range subs {
		if s.Verdict == "OK" && s.Problem.ContestID == contestID && strings.EqualFold(s.Problem.Index, index) {
			log.Debug().Str("handle", handle).Int64("submissionId", s.ID).Msg("Accepted submission found")
			return true, nil
		}
	}
	return false, nil
}

// FetchProblemsByContest lists the problems of a contest.
func (c *Client) FetchProblemsByContest(ctx context.Context, contestID int) ([]model.Problem, error) {
	if v, ok := c.problems.Get(contestID); ok {
		return v, nil
	}
	env, err := c.call(ctx, "contest.standings", url.Values{
		"contestId": {strconv.Itoa(contestID)},
		"from":      {"1"},
		"count":     {"1"},
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Problems []apiProblem `json:"problems"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return nil, fmt.Errorf("decode standings: %w", err)
	}
	problems := make([]model.Problem, 0, len(result.Problems))
	for _, p := range result.Problems {
		problems = append(problems, model.Problem{
			ContestID: p.ContestID,
			Index:     p.Index,
			Name:      p.Name,
			Rating:    p.Rating,
			Tags:      p.Tags,
		})
	}
	c.problems.Add(contestID, problems)
	return problems, nil
}
