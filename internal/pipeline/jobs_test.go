package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/notemark/internal/doctree"
	"github.com/dgallion1/notemark/internal/render"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("notes.mmd", []byte("x"))
	if job.Status != StatusQueued {
		t.Fatalf("expected new job to be queued, got %q", job.Status)
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusReading, "reading"},
		{StatusConverting, "converting"},
		{StatusWriting, "writing"},
		{StatusCompleted, "done"},
	}
	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}

	job.SetStatus(StatusFailed, "late")
	if job.Status != StatusCompleted {
		t.Errorf("expected terminal status to stick, got %q", job.Status)
	}
}

func TestJob_WaitReleasedOnTerminalStatus(t *testing.T) {
	job := NewJob("a.mmd", nil)
	go func() {
		time.Sleep(5 * time.Millisecond)
		job.SetStatus(StatusFailed, "reading")
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := job.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJob_WaitHonoursContext(t *testing.T) {
	job := NewJob("a.mmd", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := job.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if err := (&Job{ID: "bare"}).Wait(ctx); err == nil {
		t.Error("expected error for job without done channel")
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("block 3 failed")
	job.AddError("block 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "block 3 failed" {
		t.Errorf("expected first error %q, got %q", "block 3 failed", snap.Progress.Errors[0])
	}
}

func TestJob_SetResult(t *testing.T) {
	job := NewJob("doc.mmd", []byte("raw"))
	job.SetResult(&Result{
		Document: &doctree.Document{Title: "Doc"},
		Blocks: []render.RenderedBlock{
			{Block: doctree.Block{Kind: "##", Number: doctree.Number{1}}},
			{Block: doctree.Block{Kind: "PROOF"}},
			{Block: doctree.Block{Kind: "LEMMA", Number: doctree.Number{1, 1}}},
		},
		Duration: 12 * time.Millisecond,
	})

	snap := job.Snapshot()
	if snap.Title != "Doc" {
		t.Errorf("expected title %q, got %q", "Doc", snap.Title)
	}
	if snap.Progress.Blocks != 3 || snap.Progress.Numbered != 2 {
		t.Errorf("expected 3 blocks with 2 numbered, got %+v", snap.Progress)
	}
	if snap.Progress.DurationMs != 12 {
		t.Errorf("expected 12ms, got %d", snap.Progress.DurationMs)
	}
	if job.FileData() != nil {
		t.Error("expected raw upload to be released")
	}
	if job.Result() == nil {
		t.Error("expected result to be stored")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("a.mmd", nil)
	store.Put(job)

	got := store.Get(job.ID)
	if got != job {
		t.Fatal("expected to get job back")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob("old.mmd", nil)
	expired.SetStatus(StatusCompleted, "done")
	running := NewJob("running.mmd", nil)
	running.SetStatus(StatusConverting, "converting")
	store.Put(expired)
	store.Put(running)

	time.Sleep(100 * time.Millisecond)

	fresh := NewJob("new.mmd", nil)
	fresh.SetStatus(StatusCompleted, "done")
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(running.ID) == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}
