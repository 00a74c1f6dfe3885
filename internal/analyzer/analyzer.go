// Package analyzer runs the failure analysis batch: fetch failed jobs,
// classify every recorded error, aggregate into a summary.
package analyzer

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobinsights/internal/classifier"
	"jobinsights/internal/domain"
	"jobinsights/internal/jobdb"
)

const (
	defaultLookbackHours = 24
	defaultWorkers       = 4
)

// JobSource yields failed job executions for a time window.
type JobSource interface {
	FailedJobs(ctx context.Context, opts jobdb.QueryOptions) ([]domain.JobExecution, error)
}

// AnalysisResult is the classification outcome for one job execution.
type AnalysisResult struct {
	JobID           string                         `json:"job_id"`
	PipelineID      string                         `json:"pipeline_id"`
	PipelineName    string                         `json:"pipeline_name,omitempty"`
	TenantID        string                         `json:"tenant_id"`
	FinishedAt      *time.Time                     `json:"finished_at,omitempty"`
	TotalErrors     int                            `json:"total_errors"`
	PrimaryCategory domain.FailureCategory         `json:"primary_category,omitempty"`
	ByCategory      map[string]int                 `json:"by_category"`
	Classifications []classifier.ClassifiedFailure `json:"classifications"`
}

// AnalysisSummary aggregates one analysis run.
type AnalysisSummary struct {
	AnalyzedAt  time.Time        `json:"analyzed_at"`
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	TotalJobs   int              `json:"total_jobs"`
	TotalErrors int              `json:"total_errors"`
	ByCategory  map[string]int   `json:"by_category"`
	ByTenant    map[string]int   `json:"by_tenant"`
	ByPipeline  map[string]int   `json:"by_pipeline"`
	Results     []AnalysisResult `json:"results"`
}

// Options configures one analysis run. Zero values fall back to the
// default lookback window and worker count.
type Options struct {
	Since         time.Time
	Until         time.Time
	TenantID      uuid.UUID
	LookbackHours int
	Workers       int
	Limit         int
}

// Analyzer classifies the errors of failed jobs from a JobSource.
type Analyzer struct {
	source JobSource
	cls    *classifier.Classifier
}

func New(source JobSource, cls *classifier.Classifier) *Analyzer {
	return &Analyzer{source: source, cls: cls}
}

// Run executes one analysis pass. Jobs without recorded errors are
// skipped; jobs are classified concurrently but the summary keeps the
// source order (newest finished first).
func (a *Analyzer) Run(ctx context.Context, opts Options) (AnalysisSummary, error) {
	now := time.Now().UTC()
	until := opts.Until
	if until.IsZero() {
		until = now
	}
	since := opts.Since
	if since.IsZero() {
		lookback := opts.LookbackHours
		if lookback <= 0 {
			lookback = defaultLookbackHours
		}
		since = until.Add(-time.Duration(lookback) * time.Hour)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	log.Printf("analyzing failures from %s to %s", since.Format(time.RFC3339), until.Format(time.RFC3339))

	jobs, err := a.source.FailedJobs(ctx, jobdb.QueryOptions{
		Since:    since,
		Until:    until,
		TenantID: opts.TenantID,
		Limit:    opts.Limit,
	})
	if err != nil {
		return AnalysisSummary{}, err
	}
	log.Printf("found %d failed jobs to analyze", len(jobs))

	results := make([]*AnalysisResult, len(jobs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job domain.JobExecution) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = a.analyzeJob(ctx, job)
		}(i, job)
	}
	wg.Wait()

	kept := make([]AnalysisResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			kept = append(kept, *r)
		}
	}

	summary := buildSummary(kept, now, since, until)
	log.Printf("analysis complete jobs=%d errors=%d categories=%v",
		summary.TotalJobs, summary.TotalErrors, summary.ByCategory)
	return summary, nil
}

func (a *Analyzer) analyzeJob(ctx context.Context, job domain.JobExecution) *AnalysisResult {
	runInfo := job.Data.RunInfo
	if !runInfo.HasErrors() {
		return nil
	}

	classifications := a.cls.ClassifyJobErrors(ctx, runInfo)
	byCategory := make(map[string]int)
	for _, c := range classifications {
		byCategory[string(c.Category)]++
	}

	return &AnalysisResult{
		JobID:           job.ID,
		PipelineID:      job.PipelineID,
		PipelineName:    job.PipelineName,
		TenantID:        job.TenantID,
		FinishedAt:      job.FinishedAt,
		TotalErrors:     len(classifications),
		PrimaryCategory: primaryCategory(byCategory),
		ByCategory:      byCategory,
		Classifications: classifications,
	}
}

// primaryCategory is the most frequent category; ties break on category
// name so repeated runs over the same data agree.
func primaryCategory(byCategory map[string]int) domain.FailureCategory {
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestCount := 0
	for _, name := range names {
		if byCategory[name] > bestCount {
			best = name
			bestCount = byCategory[name]
		}
	}
	return domain.FailureCategory(best)
}

func buildSummary(results []AnalysisResult, analyzedAt, since, until time.Time) AnalysisSummary {
	byCategory := make(map[string]int)
	byTenant := make(map[string]int)
	byPipeline := make(map[string]int)
	totalErrors := 0

	for _, r := range results {
		totalErrors += r.TotalErrors
		byTenant[r.TenantID]++

		pipelineKey := r.PipelineName
		if pipelineKey == "" {
			pipelineKey = r.PipelineID
		}
		byPipeline[pipelineKey]++

		for cat, count := range r.ByCategory {
			byCategory[cat] += count
		}
	}

	return AnalysisSummary{
		AnalyzedAt:  analyzedAt,
		PeriodStart: since,
		PeriodEnd:   until,
		TotalJobs:   len(results),
		TotalErrors: totalErrors,
		ByCategory:  byCategory,
		ByTenant:    byTenant,
		ByPipeline:  byPipeline,
		Results:     results,
	}
}
