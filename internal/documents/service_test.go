package documents_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/documents"
	"onboarding-backend/internal/extraction"
	"onboarding-backend/internal/identity"
	"onboarding-backend/internal/progress"
	localstore "onboarding-backend/internal/shared/storage/object/local"
)

var (
	hr       = identity.Identity{EmployeeID: "HR-1", Role: identity.RoleHR}
	employee = identity.Identity{EmployeeID: "E-1", Role: identity.RoleEmployee}
	other    = identity.Identity{EmployeeID: "E-2", Role: identity.RoleEmployee}
)

type stubExtractor struct {
	mu    sync.Mutex
	res   extraction.Result
	err   error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, in extraction.Input) (extraction.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.res, s.err
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(ctx context.Context, job documents.Job) error {
	return errors.New("queue offline")
}

type directory map[string]bool

func (d directory) Exists(ctx context.Context, id string) (bool, error) {
	return d[id], nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newService(t *testing.T, ext extraction.Extractor) (*documents.Service, *documents.MemoryRepo, string) {
	t.Helper()
	dir := t.TempDir()
	repo := documents.NewMemoryRepo()
	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := &documents.Service{
		Store:     localstore.New(dir),
		Repo:      repo,
		Extractor: ext,
		Now:       clk.Now,
	}
	return svc, repo, dir
}

func upload(t *testing.T, svc *documents.Service, caller identity.Identity, docType, name string) string {
	t.Helper()
	res, err := svc.Upload(context.Background(), caller, documents.UploadRequest{
		DocumentType: docType,
		FileName:     name,
		Body:         bytes.NewReader([]byte("%PDF-1.4 test body")),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", docType, err)
	}
	if res.Status != documents.ProcessingStatus || res.DocumentID == "" {
		t.Fatalf("unexpected upload result %+v", res)
	}
	return res.DocumentID
}

func TestUploadExtractsAndRedacts(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{
		Fields: map[string]string{
			"name":           "Asha Rao",
			"aadhaar_number": "1234 5678 9012",
			"dob":            "1990-01-01",
		},
		Confidence: 0.92,
		Issues:     []string{},
	}}
	svc, _, _ := newService(t, ext)

	id := upload(t, svc, employee, "aadhaar", "aadhaar.PDF")

	view, err := svc.Get(context.Background(), employee, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Status != documents.StatusPendingReview {
		t.Fatalf("expected pending_review, got %s", view.Status)
	}
	if view.Notes != documents.NoteExtractionCompleted {
		t.Fatalf("unexpected notes %q", view.Notes)
	}
	if len(view.MissingFields) != 0 {
		t.Fatalf("expected no missing fields, got %v", view.MissingFields)
	}
	if view.Fields["aadhaar_number"] != "XXXX XXXX 9012" {
		t.Fatalf("aadhaar not masked: %q", view.Fields["aadhaar_number"])
	}
	if view.Confidence == nil || *view.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %v", view.Confidence)
	}
	if view.ExtractedAt == nil || view.VerifiedAt != nil {
		t.Fatalf("unexpected timestamps extracted=%v verified=%v", view.ExtractedAt, view.VerifiedAt)
	}
}

func TestUploadValidationOrderAndNoWrites(t *testing.T) {
	svc, repo, dir := newService(t, &stubExtractor{})
	svc.MaxUploadBytes = 8
	ctx := context.Background()

	cases := []struct {
		name   string
		req    documents.UploadRequest
		reason string
	}{
		{"unknown type wins over empty body", documents.UploadRequest{DocumentType: "passport", FileName: "a.pdf", Body: bytes.NewReader(nil)}, documents.ReasonInvalidDocumentType},
		{"empty file", documents.UploadRequest{DocumentType: "pan", FileName: "a.exe", Body: bytes.NewReader(nil)}, documents.ReasonEmptyFile},
		{"too large before extension", documents.UploadRequest{DocumentType: "pan", FileName: "a.exe", Body: bytes.NewReader(make([]byte, 9))}, documents.ReasonPayloadTooLarge},
		{"bad extension", documents.UploadRequest{DocumentType: "pan", FileName: "a.gif", Body: bytes.NewReader([]byte("x"))}, documents.ReasonUnsupportedMediaType},
		{"no extension", documents.UploadRequest{DocumentType: "pan", FileName: "scan", Body: bytes.NewReader([]byte("x"))}, documents.ReasonUnsupportedMediaType},
	}
	for _, tc := range cases {
		_, err := svc.Upload(ctx, employee, tc.req)
		if !documents.IsValidation(err, tc.reason) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.reason, err)
		}
	}

	docs, _ := repo.ListByEmployee(ctx, employee.EmployeeID, 0, 0)
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no stored bytes, found %d entries", len(entries))
	}

	if _, err := svc.Upload(ctx, employee, documents.UploadRequest{DocumentType: "PAN", FileName: "ok.JPEG", Body: bytes.NewReader(make([]byte, 8))}); err != nil {
		t.Fatalf("upload at exact limit should pass: %v", err)
	}
}

func TestUploadOnBehalf(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{})
	svc.Employees = directory{"E-1": true}
	ctx := context.Background()
	body := func() *bytes.Reader { return bytes.NewReader([]byte("data")) }

	_, err := svc.Upload(ctx, other, documents.UploadRequest{EmployeeID: "E-1", DocumentType: "pan", FileName: "p.pdf", Body: body()})
	if !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("employee uploading for someone else: expected ErrForbidden, got %v", err)
	}

	_, err = svc.Upload(ctx, hr, documents.UploadRequest{EmployeeID: "E-404", DocumentType: "pan", FileName: "p.pdf", Body: body()})
	if !documents.IsValidation(err, documents.ReasonInvalidEmployee) {
		t.Fatalf("expected invalid employee, got %v", err)
	}

	res, err := svc.Upload(ctx, hr, documents.UploadRequest{EmployeeID: "E-1", DocumentType: "pan", FileName: "p.pdf", Body: body()})
	if err != nil {
		t.Fatalf("hr upload: %v", err)
	}
	view, err := svc.Get(ctx, employee, res.DocumentID)
	if err != nil || view.EmployeeID != "E-1" {
		t.Fatalf("owner should see hr upload, got %+v %v", view, err)
	}
}

func TestExtractionFailureModes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantNotes  string
		wantIssues []string
	}{
		{"unavailable", fmt.Errorf("%w: timed out", extraction.ErrUnavailable), documents.NoteExtractionFailed, []string{"extraction_unavailable"}},
		{"unexpected", errors.New("boom"), documents.NoteExtractionFailed, []string{"extraction_unavailable"}},
		{"rejected", extraction.Reject("image too blurry"), documents.NoteExtractionUnreadable, []string{"extraction_rejected", "image too blurry"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newService(t, &stubExtractor{err: tc.err})
			id := upload(t, svc, employee, "aadhaar", "a.png")
			view, err := svc.Get(context.Background(), hr, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if view.Status != documents.StatusPendingReview || view.Notes != tc.wantNotes {
				t.Fatalf("unexpected status/notes %s %q", view.Status, view.Notes)
			}
			if view.Confidence != nil {
				t.Fatalf("confidence must be absent, got %v", *view.Confidence)
			}
			if fmt.Sprint(view.Issues) != fmt.Sprint(tc.wantIssues) {
				t.Fatalf("unexpected issues %v", view.Issues)
			}
			if fmt.Sprint(view.MissingFields) != "[aadhaar_number dob name]" {
				t.Fatalf("expected full required set, got %v", view.MissingFields)
			}
		})
	}
}

func TestLowConfidenceAndMissingNotes(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{Fields: map[string]string{"name": "A"}, Confidence: 0.3}}
	svc, _, _ := newService(t, ext)
	id := upload(t, svc, employee, "pan", "pan.jpg")

	view, _ := svc.Get(context.Background(), employee, id)
	want := "AI: extraction completed Low confidence — verify manually. Missing required fields: pan_number."
	if view.Notes != want {
		t.Fatalf("notes = %q, want %q", view.Notes, want)
	}
	if view.Status != documents.StatusPendingReview {
		t.Fatalf("low confidence must never auto-verify, got %s", view.Status)
	}
}

func TestDecisionTransitions(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{Fields: map[string]string{"name": "A"}, Confidence: 0.9}}
	svc, _, _ := newService(t, ext)
	ctx := context.Background()
	id := upload(t, svc, employee, "pan", "pan.pdf")

	if _, err := svc.Decide(ctx, employee, id, documents.DecisionRequest{Decision: "verified"}); !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("employee decision: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "maybe"}); !documents.IsValidation(err, documents.ReasonInvalidDecision) {
		t.Fatalf("expected invalid decision, got %v", err)
	}

	_, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "verified"})
	var terr *documents.TransitionError
	if !errors.As(err, &terr) || terr.Reason != documents.TransitionMissingFields || fmt.Sprint(terr.Missing) != "[pan_number]" {
		t.Fatalf("expected missing fields transition error, got %v", err)
	}
	if _, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "rejected", Notes: "  "}); !documents.IsValidation(err, documents.ReasonNotesRequired) {
		t.Fatalf("expected notes required, got %v", err)
	}

	view, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "verified", Override: true})
	if err != nil {
		t.Fatalf("override verify: %v", err)
	}
	if view.Status != documents.StatusVerified || !view.VerifiedOverride || view.VerifiedAt == nil || view.ReviewedBy != "HR-1" {
		t.Fatalf("unexpected verified view %+v", view)
	}
	if view.Notes == "" {
		t.Fatalf("blank verify notes should keep extraction notes")
	}

	_, err = svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "rejected", Notes: "late"})
	if !errors.As(err, &terr) || terr.Reason != documents.TransitionInvalid || terr.From != documents.StatusVerified {
		t.Fatalf("terminal state must refuse decisions, got %v", err)
	}

	stored, _ := svc.Get(ctx, hr, id)
	if stored.Status != documents.StatusVerified || stored.Notes != view.Notes {
		t.Fatalf("failed decision must not change state, got %+v", stored)
	}
}

func TestVerifyWithoutMissingFieldsClearsOverride(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{Fields: map[string]string{"name": "A", "pan_number": "ABCDE1234F"}, Confidence: 0.9}}
	svc, _, _ := newService(t, ext)
	id := upload(t, svc, employee, "pan", "pan.pdf")

	view, err := svc.Decide(context.Background(), hr, id, documents.DecisionRequest{Decision: "verified", Notes: "ok", Override: true})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if view.VerifiedOverride {
		t.Fatalf("override flag must only be recorded when fields were missing")
	}
	if view.Fields["pan_number"] != "XXXXX234F" {
		t.Fatalf("pan not masked: %q", view.Fields["pan_number"])
	}
}

func TestRejectRecordsNotes(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	id := upload(t, svc, employee, "photo", "me.png")
	view, err := svc.Decide(context.Background(), hr, id, documents.DecisionRequest{Decision: "rejected", Notes: "face not visible"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if view.Status != documents.StatusRejected || view.Notes != "face not visible" || view.VerifiedAt == nil {
		t.Fatalf("unexpected rejected view %+v", view)
	}
}

func TestDecisionBeforeExtractionIsInvalid(t *testing.T) {
	svc, repo, _ := newService(t, &stubExtractor{})
	svc.Dispatcher = &holdDispatcher{}
	id := upload(t, svc, employee, "resume", "cv.pdf")

	_, err := svc.Decide(context.Background(), hr, id, documents.DecisionRequest{Decision: "rejected", Notes: "x"})
	var terr *documents.TransitionError
	if !errors.As(err, &terr) || terr.From != documents.StatusPendingExtraction {
		t.Fatalf("expected invalid transition from pending_extraction, got %v", err)
	}
	doc, _ := repo.GetByID(context.Background(), id)
	if doc.Status != documents.StatusPendingExtraction {
		t.Fatalf("status changed: %s", doc.Status)
	}
}

type holdDispatcher struct {
	mu   sync.Mutex
	jobs []documents.Job
}

func (h *holdDispatcher) Dispatch(ctx context.Context, job documents.Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = append(h.jobs, job)
	return nil
}

func TestStaleExtractionIsIgnored(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{Fields: map[string]string{"name": "A"}, Confidence: 0.8}}
	svc, _, _ := newService(t, ext)
	ctx := context.Background()
	id := upload(t, svc, employee, "resume", "cv.pdf")

	if _, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "rejected", Notes: "wrong file"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := svc.ProcessExtraction(ctx, id); err != nil {
		t.Fatalf("duplicate delivery should be a no-op, got %v", err)
	}
	view, _ := svc.Get(ctx, hr, id)
	if view.Status != documents.StatusRejected || view.Notes != "wrong file" {
		t.Fatalf("stale extraction modified a reviewed document: %+v", view)
	}
	if ext.calls != 1 {
		t.Fatalf("extractor should not run again, ran %d times", ext.calls)
	}
	if err := svc.ProcessExtraction(ctx, "missing"); err != nil {
		t.Fatalf("missing document should be ignored, got %v", err)
	}
}

func TestDispatchFailureSettlesForReview(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{})
	svc.Dispatcher = failingDispatcher{}
	id := upload(t, svc, employee, "offer_letter", "offer.pdf")

	view, _ := svc.Get(context.Background(), hr, id)
	if view.Status != documents.StatusPendingReview || view.Notes != documents.NoteExtractionFailed {
		t.Fatalf("expected settled unavailable document, got %+v", view)
	}
}

func TestReadScoping(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	ctx := context.Background()
	first := upload(t, svc, employee, "pan", "1.pdf")
	second := upload(t, svc, employee, "pan", "2.pdf")
	upload(t, svc, employee, "resume", "3.pdf")

	if _, err := svc.Get(ctx, other, first); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("non-owner should get ErrNotFound, got %v", err)
	}
	if _, err := svc.List(ctx, other, "E-1", 0, 0); !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("non-owner list should be forbidden, got %v", err)
	}

	page, err := svc.List(ctx, employee, "", 2, 0)
	if err != nil || len(page) != 2 {
		t.Fatalf("list: %v len=%d", err, len(page))
	}
	if page[1].ID != second {
		t.Fatalf("expected newest first, got %s then %s", page[0].ID, page[1].ID)
	}

	all, err := svc.ListAllForEmployee(ctx, hr, "E-1")
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %v len=%d", err, len(all))
	}
	current := documents.Current(all)
	if current[doctypes.PAN].ID != second {
		t.Fatalf("newest pan should be current")
	}

	queue, err := svc.ListPendingReview(ctx, hr, 0, 0)
	if err != nil || len(queue) != 3 || queue[0].ID != first {
		t.Fatalf("review queue should be oldest first, got %v len=%d", err, len(queue))
	}
	if _, err := svc.ListPendingReview(ctx, employee, 0, 0); !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("employee review queue should be forbidden, got %v", err)
	}
	if n, err := svc.CountPendingReview(ctx, hr); err != nil || n != 3 {
		t.Fatalf("count pending review = %d, %v", n, err)
	}
}

func TestConcurrentDecisionsOnlyOneWins(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	id := upload(t, svc, employee, "photo", "p.png")

	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := documents.DecisionRequest{Decision: "verified"}
			if i%2 == 1 {
				req = documents.DecisionRequest{Decision: "rejected", Notes: "no"}
			}
			_, err := svc.Decide(context.Background(), hr, id, req)
			var terr *documents.TransitionError
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.As(err, &terr):
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || conflicts != 7 {
		t.Fatalf("expected exactly one winner, got wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestPruneSuperseded(t *testing.T) {
	svc, repo, dir := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	ctx := context.Background()

	if n, err := svc.PruneSuperseded(ctx); err != nil || n != 0 {
		t.Fatalf("zero retention must keep everything, got %d %v", n, err)
	}

	old := upload(t, svc, employee, "pan", "old.pdf")
	upload(t, svc, employee, "pan", "new.pdf")
	upload(t, svc, employee, "resume", "cv.pdf")

	oldDoc, _ := repo.GetByID(ctx, old)
	svc.Retention = time.Nanosecond
	svc.Now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }

	n, err := svc.PruneSuperseded(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one pruned document, got %d %v", n, err)
	}
	if _, err := repo.GetByID(ctx, old); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("superseded document should be deleted, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(oldDoc.StorageKey))); !os.IsNotExist(err) {
		t.Fatalf("superseded bytes should be deleted, stat err %v", err)
	}
	remaining, _ := repo.ListByEmployee(ctx, "E-1", 0, 0)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining documents, got %d", len(remaining))
	}
}

func TestDecisionAcceptsOnlyStatusNames(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	ctx := context.Background()
	id := upload(t, svc, employee, "photo", "p.png")

	for _, alias := range []string{"verify", "approve", "approved", "reject", "VERIFY", ""} {
		_, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: alias, Notes: "n", Override: true})
		if !documents.IsValidation(err, documents.ReasonInvalidDecision) {
			t.Fatalf("decision %q: expected invalid decision, got %v", alias, err)
		}
	}
	view, _ := svc.Get(ctx, hr, id)
	if view.Status != documents.StatusPendingReview {
		t.Fatalf("rejected decision values must not change state, got %s", view.Status)
	}

	view, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: " Verified ", Override: true})
	if err != nil || view.Status != documents.StatusVerified {
		t.Fatalf("status name should be accepted case-insensitively, got %s %v", view.Status, err)
	}
}

func TestReuploadDuringReviewLeavesPriorUntouched(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{Fields: map[string]string{"name": "A", "pan_number": "ABCDE1234F"}, Confidence: 0.9}}
	svc, repo, _ := newService(t, ext)
	ctx := context.Background()

	prior := upload(t, svc, employee, "pan", "first.pdf")
	before, _ := repo.GetByID(ctx, prior)
	if before.Status != documents.StatusPendingReview {
		t.Fatalf("expected prior in review, got %s", before.Status)
	}

	hold := &holdDispatcher{}
	svc.Dispatcher = hold
	next := upload(t, svc, employee, "pan", "second.pdf")

	after, _ := repo.GetByID(ctx, prior)
	if after.Status != documents.StatusPendingReview || after.Notes != before.Notes || fmt.Sprint(after.RawFields) != fmt.Sprint(before.RawFields) {
		t.Fatalf("re-upload modified the prior document: %+v", after)
	}
	created, _ := repo.GetByID(ctx, next)
	if created.Status != documents.StatusPendingExtraction || created.ID == prior {
		t.Fatalf("expected a new pending_extraction record, got %+v", created)
	}
	if len(hold.jobs) != 1 || hold.jobs[0].DocumentID != next {
		t.Fatalf("expected one job for the new upload, got %+v", hold.jobs)
	}

	all, _ := svc.ListAllForEmployee(ctx, employee, "E-1")
	current := documents.Current(all)
	if current[doctypes.PAN].ID != next {
		t.Fatalf("re-upload should be current, got %s", current[doctypes.PAN].ID)
	}
	if len(all) != 2 {
		t.Fatalf("both uploads should be kept, got %d", len(all))
	}
}

func TestConcurrentUploadsNewestIsCurrent(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{Fields: map[string]string{"name": "A"}, Confidence: 0.9}}
	svc, repo, _ := newService(t, ext)
	ctx := context.Background()

	prior := upload(t, svc, employee, "pan", "prior.pdf")
	svc.Dispatcher = &holdDispatcher{}

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Upload(ctx, employee, documents.UploadRequest{
				DocumentType: "pan",
				FileName:     fmt.Sprintf("pan-%d.pdf", i),
				Body:         bytes.NewReader([]byte("%PDF-1.4 concurrent")),
			})
			if err != nil {
				t.Errorf("upload %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	docs, _ := repo.ListByEmployee(ctx, "E-1", 0, 0)
	if len(docs) != n+1 {
		t.Fatalf("expected %d documents, got %d", n+1, len(docs))
	}
	newest := docs[0]
	for _, d := range docs {
		if d.UploadedAt.After(newest.UploadedAt) {
			newest = d
		}
	}

	all, _ := svc.ListAllForEmployee(ctx, hr, "E-1")
	if got := documents.Current(all)[doctypes.PAN].ID; got != newest.ID {
		t.Fatalf("current = %s, want newest upload %s", got, newest.ID)
	}
	priorDoc, _ := repo.GetByID(ctx, prior)
	if priorDoc.Status != documents.StatusPendingReview {
		t.Fatalf("prior upload should stay in review, got %s", priorDoc.Status)
	}
}

func TestEqualUploadTimesFollowUploadOrder(t *testing.T) {
	svc, repo, _ := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return fixed }
	ctx := context.Background()

	var last string
	for i := range 10 {
		last = upload(t, svc, employee, "resume", fmt.Sprintf("cv-%d.pdf", i))
	}

	all, _ := svc.ListAllForEmployee(ctx, employee, "E-1")
	if got := documents.Current(all)[doctypes.Resume].ID; got != last {
		t.Fatalf("current = %s, want last upload %s", got, last)
	}
	docs, _ := repo.ListByEmployee(ctx, "E-1", 1, 0)
	if len(docs) != 1 || docs[0].ID != last {
		t.Fatalf("newest-first listing should start with the last upload, got %+v", docs)
	}
}

func TestAadhaarUploadReviewAndProgress(t *testing.T) {
	ext := &stubExtractor{res: extraction.Result{
		Fields: map[string]string{
			"name":           "Ravi Kumar",
			"aadhaar_number": "999988887777",
			"dob":            "1992-07-14",
		},
		Confidence: 0.95,
	}}
	svc, repo, _ := newService(t, ext)
	ctx := context.Background()

	id := upload(t, svc, employee, "aadhaar", "aadhaar.jpg")

	views, _ := svc.ListAllForEmployee(ctx, employee, "E-1")
	if got := progress.Summarize(views).VerifiedCount; got != 0 {
		t.Fatalf("verified count before review = %d", got)
	}

	view, err := svc.Get(ctx, hr, id)
	if err != nil {
		t.Fatalf("hr get: %v", err)
	}
	if view.Status != documents.StatusPendingReview || view.Confidence == nil || *view.Confidence != 0.95 {
		t.Fatalf("unexpected review view %+v", view)
	}
	if view.Fields["aadhaar_number"] != "XXXX XXXX 7777" {
		t.Fatalf("hr view must be masked, got %q", view.Fields["aadhaar_number"])
	}
	stored, _ := repo.GetByID(ctx, id)
	if stored.RawFields["aadhaar_number"] != "999988887777" {
		t.Fatalf("stored value must stay raw, got %q", stored.RawFields["aadhaar_number"])
	}

	verified, err := svc.Decide(ctx, hr, id, documents.DecisionRequest{Decision: "verified"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != documents.StatusVerified || verified.VerifiedAt == nil || verified.VerifiedOverride {
		t.Fatalf("unexpected verified view %+v", verified)
	}
	if verified.Fields["aadhaar_number"] != "XXXX XXXX 7777" {
		t.Fatalf("decision response must be masked, got %q", verified.Fields["aadhaar_number"])
	}

	views, _ = svc.ListAllForEmployee(ctx, employee, "E-1")
	summary := progress.Summarize(views)
	if summary.VerifiedCount != 1 || summary.CountsByStatus[documents.StatusVerified] != 1 {
		t.Fatalf("verified count after review = %d, counts %v", summary.VerifiedCount, summary.CountsByStatus)
	}
}

func TestListWithoutEmployeeIsScopedByRole(t *testing.T) {
	svc, _, _ := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	ctx := context.Background()
	upload(t, svc, employee, "pan", "e1.pdf")
	upload(t, svc, other, "pan", "e2.pdf")
	newest := upload(t, svc, other, "resume", "e2-cv.pdf")

	all, err := svc.List(ctx, hr, "", 0, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("hr list: %v len=%d", err, len(all))
	}
	if all[0].ID != newest {
		t.Fatalf("expected newest first across employees, got %s", all[0].ID)
	}
	page, err := svc.List(ctx, hr, "", 2, 2)
	if err != nil || len(page) != 1 {
		t.Fatalf("hr page: %v len=%d", err, len(page))
	}

	own, err := svc.List(ctx, other, "", 0, 0)
	if err != nil || len(own) != 2 {
		t.Fatalf("employee list: %v len=%d", err, len(own))
	}
	for _, v := range own {
		if v.EmployeeID != "E-2" {
			t.Fatalf("employee saw someone else's upload %+v", v)
		}
	}
}

func TestDeleteForEmployeeRemovesRowsAndBytes(t *testing.T) {
	svc, repo, dir := newService(t, &stubExtractor{err: extraction.ErrUnavailable})
	ctx := context.Background()
	first := upload(t, svc, employee, "pan", "p.pdf")
	upload(t, svc, employee, "resume", "cv.pdf")
	kept := upload(t, svc, other, "pan", "other.pdf")
	firstDoc, _ := repo.GetByID(ctx, first)

	if _, err := svc.DeleteForEmployee(ctx, employee, "E-1"); !errors.Is(err, documents.ErrForbidden) {
		t.Fatalf("employee purge: expected ErrForbidden, got %v", err)
	}
	n, err := svc.DeleteForEmployee(ctx, hr, "E-1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 removed, got %d %v", n, err)
	}
	if docs, _ := repo.ListByEmployee(ctx, "E-1", 0, 0); len(docs) != 0 {
		t.Fatalf("expected no documents left for E-1, got %d", len(docs))
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(firstDoc.StorageKey))); !os.IsNotExist(err) {
		t.Fatalf("stored bytes should be deleted, stat err %v", err)
	}
	if _, err := repo.GetByID(ctx, kept); err != nil {
		t.Fatalf("other employee's document must survive: %v", err)
	}
	if n, err := svc.DeleteForEmployee(ctx, hr, "E-1"); err != nil || n != 0 {
		t.Fatalf("repeat purge should be a no-op, got %d %v", n, err)
	}
}
