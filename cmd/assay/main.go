// Command assay is the offline reconciliation tool: it reads a grader
// verdict document, composes an assessment run through the full policy
// pipeline, and emits the result as JSON. With -commit the run is appended
// to the workspace database; otherwise composition is in-memory only. A
// prior run file can be supplied to produce a rerun-integrity diff.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/audit"
	"github.com/mwhitfield/assay/internal/config"
	"github.com/mwhitfield/assay/internal/notes"
	"github.com/mwhitfield/assay/internal/overrides"
	"github.com/mwhitfield/assay/internal/runs"
	"github.com/mwhitfield/assay/internal/verdict"
	"github.com/mwhitfield/assay/pkg/database"
	"github.com/mwhitfield/assay/pkg/lifecycle"
)

const shutdownTimeout = 30 * time.Second

type output struct {
	Run      *runs.AssessmentRun `json:"run"`
	Warnings []verdict.Warning   `json:"warnings"`
	Render   *runs.RenderPayload `json:"render,omitempty"`
	Diff     *audit.Report       `json:"diff,omitempty"`
}

func main() {
	var (
		verdictPath  = flag.String("verdict", "", "Path to the grader verdict JSON document (required)")
		submission   = flag.String("submission", "", "Submission UUID (random if omitted)")
		sectionsPath = flag.String("sections", "", "Path to a section context JSON file for note grouping")
		priorPath    = flag.String("prior", "", "Path to a prior composed run JSON file to diff against")
		render       = flag.Bool("render", false, "Include the PDF-renderer payload in the output")
		student      = flag.String("student", "", "Student name for the render cover fields")
		markedBy     = flag.String("marked-by", "", "Assessor name for the render cover fields")
		commit       = flag.Bool("commit", false, "Append the run to the configured database")
	)
	flag.Parse()

	if *verdictPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	submissionID := uuid.New()
	if *submission != "" {
		submissionID, err = uuid.Parse(*submission)
		if err != nil {
			log.Fatal("invalid submission id: ", err)
		}
	}

	data, err := os.ReadFile(*verdictPath)
	if err != nil {
		log.Fatal("read verdict: ", err)
	}

	doc, warnings, err := verdict.Parse(data)
	if err != nil {
		log.Fatal("parse verdict: ", err)
	}

	var (
		store  runs.Store          = runs.NewMemoryStore()
		ledger overrides.Ledger    = overrides.NewMemoryLedger()
		lc     *lifecycle.Coordinator
	)

	if *commit {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			log.Fatal("open database: ", err)
		}

		lc = lifecycle.New()
		if err := db.Start(lc); err != nil {
			log.Fatal("start database: ", err)
		}
		lc.WaitForStartup()
		defer func() {
			if err := lc.Shutdown(shutdownTimeout); err != nil {
				logger.Error("shutdown failed", "error", err)
			}
		}()

		store = runs.NewPostgresStore(db.Connection(), logger)
		ledger = overrides.NewPostgresLedger(db.Connection(), logger)
	}

	svc := runs.NewService(store, ledger, cfg.Policy, cfg.Notes, cfg.Pagination, logger)

	run, err := svc.Commit(ctx, submissionID, doc, warnings)
	if err != nil {
		log.Fatal("commit run: ", err)
	}

	noteCtx, err := loadSections(*sectionsPath)
	if err != nil {
		log.Fatal("load sections: ", err)
	}

	out := output{Run: run, Warnings: warnings}
	if out.Warnings == nil {
		out.Warnings = []verdict.Warning{}
	}

	if *render {
		payload, err := svc.Render(ctx, submissionID, run.ID, noteCtx, runs.CoverFields{
			StudentName: *student,
			MarkedBy:    *markedBy,
		})
		if err != nil {
			log.Fatal("assemble render payload: ", err)
		}
		out.Render = payload
	}

	if *priorPath != "" {
		prior, err := loadRun(*priorPath)
		if err != nil {
			log.Fatal("load prior run: ", err)
		}
		report := audit.Diff(prior, run, svc.NoteConfig(), noteCtx)
		out.Diff = &report
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal("encode output: ", err)
	}
}

func loadSections(path string) (notes.Context, error) {
	var noteCtx notes.Context
	if path == "" {
		return noteCtx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return noteCtx, err
	}
	if err := json.Unmarshal(data, &noteCtx); err != nil {
		return noteCtx, fmt.Errorf("parse section context: %w", err)
	}
	return noteCtx, nil
}

func loadRun(path string) (*runs.AssessmentRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var run runs.AssessmentRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	return &run, nil
}
