package grantsearch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TextGenerator is the slice of the LLM caller the pipeline needs.
type TextGenerator interface {
	GenerateWithWebSearch(ctx context.Context, prompt string, maxTokens, maxSearches int) (string, error)
}

// GrantStore is the slice of the workspace store the pipeline writes to.
// Any non-success response from the store is a hard failure for that write;
// the run itself continues with the remaining grants.
type GrantStore interface {
	GrantExists(ctx context.Context, name string) (string, bool, error)
	CreateGrant(ctx context.Context, g Grant) (string, error)
}

// ProfileSource supplies the active organization context for prompting.
type ProfileSource interface {
	ActiveOrgContext(ctx context.Context) (OrgContext, bool, error)
}

// ContentFetcher corroborates a grant's source URL. Fetch failures degrade to
// "unverified" and never abort the run.
type ContentFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

const (
	verificationWebSearch  = "Web Search Verified"
	verificationSource     = "Source Verified"
	verificationUnverified = "Unverified"
)

type Pipeline struct {
	gen         TextGenerator
	store       GrantStore
	profiles    ProfileSource
	fetcher     ContentFetcher
	parser      *Parser
	validator   Validator
	maxSearches int
	now         func() time.Time
}

type PipelineConfig struct {
	Generator   TextGenerator
	Store       GrantStore
	Profiles    ProfileSource
	Fetcher     ContentFetcher // optional; nil disables corroboration
	Keywords    []string
	MaxSearches int
	Now         func() time.Time
}

func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("grant store is required")
	}
	if cfg.MaxSearches <= 0 {
		cfg.MaxSearches = DefaultMaxSearches
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		gen:         cfg.Generator,
		store:       cfg.Store,
		profiles:    cfg.Profiles,
		fetcher:     cfg.Fetcher,
		parser:      NewParser(cfg.Keywords),
		maxSearches: cfg.MaxSearches,
		now:         cfg.Now,
	}, nil
}

// Run executes one discovery cycle: profile context, web-search generation,
// parse, validate, corroborate, sort, dedupe, persist. A run with zero
// surviving grants is a successful empty result; only a total generation
// failure is an error.
func (p *Pipeline) Run(ctx context.Context) (DiscoveryResult, error) {
	now := p.now()
	res := DiscoveryResult{RunID: uuid.NewString(), StartedAt: now}

	var org OrgContext
	if p.profiles != nil {
		fetched, ok, err := p.profiles.ActiveOrgContext(ctx)
		if err != nil {
			log.Printf("grant-discovery profile_fetch_failed run=%s err=%q", res.RunID, err.Error())
		} else if ok {
			org = fetched
		}
	}

	res.Queries = BuildQueryMatrix(org, now.Year())
	prompt := buildSearchPrompt(org, res.Queries, now)

	log.Printf("grant-discovery search_start run=%s queries=%d", res.RunID, len(res.Queries))
	raw, err := p.gen.GenerateWithWebSearch(ctx, prompt, DefaultMaxTokens, p.maxSearches)
	if err != nil {
		return res, fmt.Errorf("web search generation: %w", err)
	}
	res.RawResponse = raw

	batch := p.parser.Parse(raw, now)
	res.Outcomes = batch.Outcomes
	res.TotalFound = len(batch.Grants)

	for _, grant := range batch.Grants {
		v := p.validator.Validate(grant, now)
		if !v.Valid {
			log.Printf("grant-discovery rejected run=%s grant=%q reason=%q", res.RunID, grant.GrantName, v.Reason)
			res.Rejected = append(res.Rejected, RejectedGrant{GrantName: grant.GrantName, Reason: v.Reason})
			continue
		}
		grant.ValidationScore = v.Score
		grant.VerificationStatus = verificationWebSearch
		res.Validated = append(res.Validated, grant)
	}
	res.TotalValidated = len(res.Validated)

	p.corroborate(ctx, res.RunID, res.Validated)
	sortByDeadline(res.Validated)

	for _, grant := range res.Validated {
		saved, err := p.persist(ctx, grant)
		if err != nil {
			log.Printf("grant-discovery store_write_failed run=%s grant=%q err=%q", res.RunID, grant.GrantName, err.Error())
			continue
		}
		res.Saved = append(res.Saved, saved)
	}

	res.CompletedAt = p.now()
	res.ReportMarkdown = RenderReport(res, now)
	log.Printf("grant-discovery complete run=%s found=%d validated=%d saved=%d elapsed_ms=%d",
		res.RunID, res.TotalFound, res.TotalValidated, len(res.Saved), res.CompletedAt.Sub(res.StartedAt).Milliseconds())
	return res, nil
}

// corroborate fetches each grant's source page and confirms the grant name
// appears there. Fetches are independent and write to disjoint slice entries,
// so they run concurrently under one shared deadline.
func (p *Pipeline) corroborate(ctx context.Context, runID string, grants []Grant) {
	if p.fetcher == nil {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, corroborationBudget)
	defer cancel()

	var wg sync.WaitGroup
	checked := 0
	for i := range grants {
		if grants[i].SourceURL == "" || checked >= maxCorroborations {
			continue
		}
		checked++
		wg.Add(1)
		go func(g *Grant) {
			defer wg.Done()
			text, err := p.fetcher.FetchText(fetchCtx, g.SourceURL)
			if err != nil {
				log.Printf("grant-discovery corroborate_failed run=%s url=%s err=%q", runID, g.SourceURL, err.Error())
				g.VerificationStatus = verificationUnverified
				return
			}
			if strings.Contains(strings.ToLower(text), strings.ToLower(g.GrantName)) {
				g.VerificationStatus = verificationSource
			} else {
				g.VerificationStatus = verificationUnverified
			}
		}(&grants[i])
	}
	wg.Wait()
}

// sortByDeadline orders urgent deadlines first; grants without a deadline go
// to the end, preserving their relative order.
func sortByDeadline(grants []Grant) {
	sort.SliceStable(grants, func(i, j int) bool {
		di, iok := grants[i].DeadlineTime()
		dj, jok := grants[j].DeadlineTime()
		if iok != jok {
			return iok
		}
		if !iok {
			return false
		}
		return di.Before(dj)
	})
}

func (p *Pipeline) persist(ctx context.Context, grant Grant) (SavedGrant, error) {
	id, exists, err := p.store.GrantExists(ctx, grant.GrantName)
	if err != nil {
		return SavedGrant{}, fmt.Errorf("dedupe check: %w", err)
	}
	if exists {
		return SavedGrant{Grant: grant, ID: id, Status: "duplicate"}, nil
	}
	id, err = p.store.CreateGrant(ctx, grant)
	if err != nil {
		return SavedGrant{}, fmt.Errorf("create grant: %w", err)
	}
	return SavedGrant{Grant: grant, ID: id, Status: "saved"}, nil
}
