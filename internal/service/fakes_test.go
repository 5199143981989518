package service

import (
	"context"
	"time"

	"contextapi/internal/models"
	"contextapi/internal/repository"
)

// Shared in-memory repository fakes for service tests.

type fakeArticleRepo struct {
	articles map[string]*models.Article
	seeded   []*models.Article
	upserted []*models.Article
	resetIDs []string
	hits     []models.SearchHit

	seedErr error
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[string]*models.Article)}
}

func (f *fakeArticleRepo) Seed(_ context.Context, article *models.Article) error {
	if f.seedErr != nil {
		return f.seedErr
	}
	f.seeded = append(f.seeded, article)
	return nil
}

func (f *fakeArticleRepo) ResetContent(_ context.Context, articleID string) error {
	f.resetIDs = append(f.resetIDs, articleID)
	return nil
}

func (f *fakeArticleRepo) Upsert(_ context.Context, article *models.Article) error {
	f.upserted = append(f.upserted, article)
	f.articles[article.ArticleID] = article
	return nil
}

func (f *fakeArticleRepo) GetByID(_ context.Context, articleID string) (*models.Article, error) {
	return f.articles[articleID], nil
}

func (f *fakeArticleRepo) MarkExtracted(context.Context, *repository.ExtractedUpdate) error {
	return nil
}

func (f *fakeArticleRepo) MarkEnriched(context.Context, *repository.EnrichedUpdate) error {
	return nil
}

func (f *fakeArticleRepo) MarkFailed(context.Context, string) error { return nil }

func (f *fakeArticleRepo) Search(_ context.Context, query string, limit, _ int) ([]models.SearchHit, error) {
	if query == "" {
		return nil, nil
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeSectionRepo struct {
	sections map[string][]models.Section
	hits     []models.SectionHit
}

func newFakeSectionRepo() *fakeSectionRepo {
	return &fakeSectionRepo{sections: make(map[string][]models.Section)}
}

func (f *fakeSectionRepo) Replace(_ context.Context, articleID string, sections []models.Section) error {
	f.sections[articleID] = sections
	return nil
}

func (f *fakeSectionRepo) GetByIDs(_ context.Context, articleID string, sectionIDs []string) ([]models.Section, error) {
	wanted := make(map[string]struct{}, len(sectionIDs))
	for _, id := range sectionIDs {
		wanted[id] = struct{}{}
	}
	var out []models.Section
	for _, s := range f.sections[articleID] {
		if _, ok := wanted[s.SectionID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSectionRepo) Search(_ context.Context, _, query string, limit int) ([]models.SectionHit, error) {
	if query == "" {
		return nil, nil
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeJobRepo struct {
	created   []*models.IngestJob
	latest    map[string]*models.IngestJob
	createErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{latest: make(map[string]*models.IngestJob)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *models.IngestJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobRepo) GetByID(context.Context, string) (*models.IngestJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) LatestByArticle(_ context.Context, articleID string) (*models.IngestJob, error) {
	return f.latest[articleID], nil
}

func (f *fakeJobRepo) ClaimNext(context.Context) (*models.ClaimedJob, error) { return nil, nil }

func (f *fakeJobRepo) MarkDone(context.Context, string) error { return nil }

func (f *fakeJobRepo) MarkFailed(context.Context, string, string) error { return nil }

func (f *fakeJobRepo) RequeueStaleRunning(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

type fakeRepos struct {
	articles *fakeArticleRepo
	sections *fakeSectionRepo
	jobs     *fakeJobRepo
	repos    *repository.Repositories
}

func newFakeRepos() *fakeRepos {
	articles := newFakeArticleRepo()
	sections := newFakeSectionRepo()
	jobs := newFakeJobRepo()
	return &fakeRepos{
		articles: articles,
		sections: sections,
		jobs:     jobs,
		repos: &repository.Repositories{
			Article: articles,
			Section: sections,
			Job:     jobs,
		},
	}
}
