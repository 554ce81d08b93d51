// Package github tallies the outcomes of closed pull requests.
package github

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

	"github.com/ShayCichocki/contribgate/internal/config"
)

const (
	defaultAPIURL = "https://api.github.com"
	perPage       = 100
	// maxPages bounds a tally to the first 5000 closed pull requests.
	maxPages = 50
)

// Pull request outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// ErrInvalidRepo is returned for repositories not in owner/name form.
var ErrInvalidRepo = errors.New("repository must be owner/name")

// Client provides access to the GitHub REST API.
type Client struct {
	owner   string
	repo    string
	token   string
	apiURL  string
	httpCli *http.Client
}

// New creates a client for cfg.Repo. The token may be empty for public
// repositories. A nil httpClient uses one with a 60s timeout.
func New(cfg config.GitHubConfig, token string, httpClient *http.Client) (*Client, error) {
	owner, repo, ok := strings.Cut(cfg.Repo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, cfg.Repo)
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		owner:   owner,
		repo:    repo,
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: httpClient,
	}, nil
}

// PullRequest is the subset of a pull request the tally needs.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	MergedAt *time.Time `json:"merged_at"`
	User     struct {
		Login string `json:"login"`
	} `json:"user"`
}

// Outcome classifies a closed pull request as accepted when it was merged.
func (pr PullRequest) Outcome() string {
	if pr.MergedAt != nil {
		return OutcomeAccepted
	}
	return OutcomeRejected
}

// ListClosedPullRequests returns the closed pull requests against base,
// oldest first.
func (c *Client) ListClosedPullRequests(ctx context.Context, base string) ([]PullRequest, error) {
	var all []PullRequest
	for page := 1; page <= maxPages; page++ {
		prs, err := c.listPage(ctx, base, page)
		if err != nil {
			return nil, err
		}
		all = append(all, prs...)
		if len(prs) < perPage {
			break
		}
	}
	return all, nil
}

func (c *Client) listPage(ctx context.Context, base string, page int) ([]PullRequest, error) {
	q := url.Values{}
	q.Set("state", "closed")
	q.Set("base", base)
	q.Set("sort", "created")
	q.Set("direction", "asc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/repos/%s/%s/pulls?%s", c.apiURL, c.owner, c.repo, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching pull requests: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("repository %s/%s not found", c.owner, c.repo)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("authentication failed: %s", string(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, string(body))
	}

	var prs []PullRequest
	if err := json.Unmarshal(body, &prs); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return prs, nil
}

// Tally counts closed pull requests by outcome.
type Tally struct {
	Accepted int
	Rejected int
	PRs      []PullRequest
}

// Total is the number of closed pull requests.
func (t Tally) Total() int { return t.Accepted + t.Rejected }

// AcceptanceRate is the share of closed pull requests that were merged,
// or zero when there are none.
func (t Tally) AcceptanceRate() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Accepted) / float64(t.Total())
}

// Outcomes tallies the closed pull requests against base.
func (c *Client) Outcomes(ctx context.Context, base string) (Tally, error) {
	prs, err := c.ListClosedPullRequests(ctx, base)
	if err != nil {
		return Tally{}, err
	}
	t := Tally{PRs: prs}
	for _, pr := range prs {
		if pr.Outcome() == OutcomeAccepted {
			t.Accepted++
		} else {
			t.Rejected++
		}
	}
	return t, nil
}
