package reviewService

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/internal/api/recording"
	recordingRepository "github.com/snditnz/verbumcare/internal/api/recording/repository"
	"github.com/snditnz/verbumcare/internal/api/review"
	reviewRepository "github.com/snditnz/verbumcare/internal/api/review/repository"
	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/categorize"
	"github.com/snditnz/verbumcare/pkg/notifier"
	"github.com/snditnz/verbumcare/pkg/utils"
)

type domainRow struct {
	RecordID string
	Category entity.CategoryType
	ReviewID string
}

// fakeReviewStore backs the review repository interfaces with maps. A
// tx-scoped client snapshots state on open and restores it on rollback, so
// the all-or-nothing behavior of the confirm transaction holds in tests.
type fakeReviewStore struct {
	mu           sync.Mutex
	items        map[string]entity.ReviewItem
	auditEntries []entity.CategorizationLogEntry
	domainRows   []domainRow

	// domainErr, when set, decides per category whether InsertCategory fails.
	domainErr func(category entity.Category) error
	// createErr and auditErr, when set, fail CreateReviewItem / CreateEntry.
	createErr error
	auditErr  error

	commits   int
	rollbacks int
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{items: map[string]entity.ReviewItem{}}
}

func (f *fakeReviewStore) NewClient(tx bool) (reviewRepository.Client, error) {
	var snapItems map[string]entity.ReviewItem
	var snapAudit []entity.CategorizationLogEntry
	var snapDomain []domainRow

	if tx {
		f.mu.Lock()
		snapItems = make(map[string]entity.ReviewItem, len(f.items))
		for k, v := range f.items {
			snapItems[k] = v
		}
		snapAudit = append([]entity.CategorizationLogEntry(nil), f.auditEntries...)
		snapDomain = append([]domainRow(nil), f.domainRows...)
		f.mu.Unlock()
	}

	committed := false
	commit := func() error {
		committed = true
		f.mu.Lock()
		f.commits++
		f.mu.Unlock()
		return nil
	}
	rollback := func() error {
		if !tx || committed {
			return nil
		}
		f.mu.Lock()
		f.items = snapItems
		f.auditEntries = snapAudit
		f.domainRows = snapDomain
		f.rollbacks++
		f.mu.Unlock()
		return nil
	}

	return reviewRepository.Client{
		Review:   f,
		Audit:    f,
		Domain:   f,
		Commit:   commit,
		Rollback: rollback,
	}, nil
}

func (f *fakeReviewStore) CreateReviewItem(_ context.Context, item entity.ReviewItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.items[item.ID]; exists {
		return review.ErrDuplicateReview
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeReviewStore) GetByID(_ context.Context, id string) (entity.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return entity.ReviewItem{}, review.ErrReviewNotFound
	}
	return item, nil
}

func (f *fakeReviewStore) GetQueue(_ context.Context, userID string) ([]entity.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.ReviewItem
	for _, item := range f.items {
		if item.UserID == userID &&
			(item.Status == entity.ReviewPending || item.Status == entity.ReviewInReview) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReviewStore) UpdateExtractedData(_ context.Context, id string, transcript string, lang string, data entity.ExtractedData, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return review.ErrInvalidTransition
	}
	if item.Status != entity.ReviewPending && item.Status != entity.ReviewInReview {
		return review.ErrInvalidTransition
	}
	item.Transcript = transcript
	item.TranscriptLang = lang
	item.ExtractedData = data
	item.OverallConfidence = confidence
	f.items[id] = item
	return nil
}

func (f *fakeReviewStore) UpdateStatusGuarded(_ context.Context, id string, from []entity.ReviewStatus, to entity.ReviewStatus, reviewedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if item.Status == s {
			item.Status = to
			if reviewedAt != nil {
				item.ReviewedAt = reviewedAt
			}
			f.items[id] = item
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReviewStore) ListArchiveDue(_ context.Context, cutoff time.Time) ([]entity.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ReviewItem
	for _, item := range f.items {
		if !item.Status.Terminal() && item.CreatedAt.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeReviewStore) CreateEntry(_ context.Context, entry entity.CategorizationLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auditErr != nil {
		return f.auditErr
	}
	f.auditEntries = append(f.auditEntries, entry)
	return nil
}

func (f *fakeReviewStore) LatestForReview(_ context.Context, reviewID string) (entity.CategorizationLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.auditEntries) - 1; i >= 0; i-- {
		if f.auditEntries[i].ReviewID == reviewID {
			return f.auditEntries[i], nil
		}
	}
	return entity.CategorizationLogEntry{}, review.ErrReviewNotFound
}

func (f *fakeReviewStore) StampConfirmation(_ context.Context, reviewID string, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.auditEntries) - 1; i >= 0; i-- {
		if f.auditEntries[i].ReviewID == reviewID {
			f.auditEntries[i].ConfirmedAt = &at
			f.auditEntries[i].ConfirmedBy = &userID
			return nil
		}
	}
	return review.ErrReviewNotFound
}

func (f *fakeReviewStore) InsertCategory(_ context.Context, recordID string, item entity.ReviewItem, category entity.Category) error {
	if f.domainErr != nil {
		if err := f.domainErr(category); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domainRows = append(f.domainRows, domainRow{RecordID: recordID, Category: category.Type, ReviewID: item.ID})
	return nil
}

type fakeRecordingStore struct {
	mu         sync.Mutex
	recordings map[string]entity.VoiceRecording
}

func newFakeRecordingStore() *fakeRecordingStore {
	return &fakeRecordingStore{recordings: map[string]entity.VoiceRecording{}}
}

func (f *fakeRecordingStore) NewClient(tx bool) (recordingRepository.Client, error) {
	return recordingRepository.Client{
		Recording: f,
		Commit:    func() error { return nil },
		Rollback:  func() error { return nil },
	}, nil
}

func (f *fakeRecordingStore) CreateRecording(_ context.Context, rec entity.VoiceRecording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordings[rec.ID] = rec
	return nil
}

func (f *fakeRecordingStore) GetByID(_ context.Context, id string) (entity.VoiceRecording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recordings[id]
	if !ok {
		return entity.VoiceRecording{}, recording.ErrRecordingNotFound
	}
	return rec, nil
}

func (f *fakeRecordingStore) UpdateStatusGuarded(_ context.Context, id string, from []entity.RecordingStatus, to entity.RecordingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recordings[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if rec.Status == s {
			rec.Status = to
			f.recordings[id] = rec
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordingStore) StoreTranscription(_ context.Context, id string, transcript string, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.recordings[id]
	rec.Transcript = transcript
	rec.DurationSeconds = seconds
	f.recordings[id] = rec
	return nil
}

func (f *fakeRecordingStore) ListByStatus(_ context.Context, status entity.RecordingStatus, limit int) ([]entity.VoiceRecording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.VoiceRecording
	for _, rec := range f.recordings {
		if rec.Status == status {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type publishedEvent struct {
	Channel string
	Event   notifier.Event
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeNotifier) Publish(_ context.Context, userID string, event notifier.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Channel: userID, Event: event})
}

func (f *fakeNotifier) Subscribe(_ context.Context, _ string) (<-chan notifier.Event, func()) {
	ch := make(chan notifier.Event)
	close(ch)
	return ch, func() {}
}

func (f *fakeNotifier) byType(t notifier.EventType) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// scriptedCategorizer answers Detect/Extract from fixed data; validation
// delegates to the real rules.
type scriptedCategorizer struct {
	categorize.ICategorizer
	detected   []categorize.DetectedCategory
	extracted  map[entity.CategoryType]entity.Category
	detectErr  error
	extractErr map[entity.CategoryType]error
	// detectHook runs at the start of DetectCategories; tests use it to
	// mutate state while the model call is in flight.
	detectHook func()
}

func (s *scriptedCategorizer) DetectCategories(_ context.Context, _ string, _ string) ([]categorize.DetectedCategory, error) {
	if s.detectHook != nil {
		s.detectHook()
	}
	if s.detectErr != nil {
		return nil, s.detectErr
	}
	return s.detected, nil
}

func (s *scriptedCategorizer) ExtractCategory(_ context.Context, _ string, t entity.CategoryType, _ string) (entity.Category, error) {
	if err, ok := s.extractErr[t]; ok {
		return entity.Category{}, err
	}
	return s.extracted[t], nil
}

func (s *scriptedCategorizer) DetectLanguage(_ string) string { return "en" }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type serviceFixture struct {
	service    IReviewService
	reviews    *fakeReviewStore
	recordings *fakeRecordingStore
	notifier   *fakeNotifier
}

func newFixture(categorizer categorize.ICategorizer) *serviceFixture {
	reviews := newFakeReviewStore()
	recordings := newFakeRecordingStore()
	notify := &fakeNotifier{}

	if categorizer == nil {
		categorizer = categorize.NewEngine(nil, quietLogger())
	}

	return &serviceFixture{
		service:    NewReviewService(quietLogger(), reviews, recordings, categorizer, notify, utils.New()),
		reviews:    reviews,
		recordings: recordings,
		notifier:   notify,
	}
}
