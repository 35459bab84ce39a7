package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/notemark/internal/source"
)

// Worker converts a single document job.
type Worker struct {
	conv        *Converter
	log         *slog.Logger
	pdfFallback bool
}

func NewWorker(conv *Converter, log *slog.Logger, pdfFallback bool) *Worker {
	return &Worker{conv: conv, log: log, pdfFallback: pdfFallback}
}

// Process reads, converts and optionally writes out one job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Read
	job.SetStatus(StatusReading, "reading")
	text, err := ReadSource(job.Filename, job.FileData(), w.pdfFallback)
	if err != nil {
		w.fail(log, job, "reading", err)
		return
	}
	job.SetContentHash(ContentHashHex([]byte(text)))

	// Phase 2: Convert
	job.SetStatus(StatusConverting, "converting")
	res, err := w.conv.Convert(ctx, job.Filename, text)
	if err != nil {
		w.fail(log, job, "converting", err)
		return
	}
	job.SetResult(res)
	log.Info("converted document", "blocks", len(res.Blocks), "duration_ms", res.Duration.Milliseconds())

	// Phase 3: Write
	if job.OutputPath != "" {
		job.SetStatus(StatusWriting, "writing")
		if err := os.WriteFile(job.OutputPath, []byte(res.HTML), 0o644); err != nil {
			w.fail(log, job, "writing", fmt.Errorf("write output: %w", err))
			return
		}
		log.Info("wrote page", "path", job.OutputPath)
	}

	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("conversion failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}

// ReadSource extracts markup text from raw file bytes, choosing the reader
// by file extension.
func ReadSource(filename string, data []byte, pdfFallback bool) (string, error) {
	r, err := source.ForFile(filename)
	if err != nil {
		return "", err
	}
	if pdf, ok := r.(*source.PDFReader); ok {
		pdf.FallbackPdftotext = pdfFallback
	}
	text, err := r.Read(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	return text, nil
}
