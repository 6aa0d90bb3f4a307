package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
	ingestuc "github.com/lexhaven/lexsearch/internal/usecase/ingest"
)

// caseFile is the on-disk JSON shape for bulk ingestion. A file holds
// either one case object or an array of them.
type caseFile struct {
	Name         string   `json:"name"`
	Citation     string   `json:"citation,omitempty"`
	Court        string   `json:"court,omitempty"`
	DecisionDate string   `json:"decision_date,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Judges       []string `json:"judges,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	DocketNumber string   `json:"docket_number,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Text         string   `json:"text"`
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "bulk-load JSON case files into the engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "directory of *.json case files",
				Required: true,
			},
		},
		Action: runIngest,
	}
}

func runIngest(cliCtx *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	docs, err := loadCaseDir(cliCtx.String("dir"))
	if err != nil {
		return err
	}
	logger.Info("Loaded case files", zap.Int("documents", len(docs)))

	start := time.Now()
	var total ingestuc.Result
	for batch := range batches(docs, cfg.Ingestion.BatchSize) {
		res, err := comps.ingestSvc.IngestBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("ingest batch: %w", err)
		}
		total.Ingested += res.Ingested
		total.Failed += res.Failed
	}

	stats := comps.ingestSvc.Stats()
	logger.Info("Ingestion finished",
		zap.Int("ingested", total.Ingested),
		zap.Int("failed", total.Failed),
		zap.Uint64("paragraphs", stats.ParagraphCount),
		zap.Uint64("vectors", stats.VectorCount),
		zap.Uint64("tokens_used", stats.TokensUsed),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// batches yields fixed-size slices of docs.
func batches(docs []ingestuc.Document, size int) <-chan []ingestuc.Document {
	if size <= 0 {
		size = len(docs)
	}
	ch := make(chan []ingestuc.Document)
	go func() {
		defer close(ch)
		for start := 0; start < len(docs); start += size {
			end := start + size
			if end > len(docs) {
				end = len(docs)
			}
			ch <- docs[start:end]
		}
	}()
	return ch
}

func loadCaseDir(dir string) ([]ingestuc.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var docs []ingestuc.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fileDocs, err := loadCaseFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		docs = append(docs, fileDocs...)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no case documents found in %s", dir)
	}
	return docs, nil
}

func loadCaseFile(path string) ([]ingestuc.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var records []caseFile
	if err := json.Unmarshal(data, &records); err != nil {
		var single caseFile
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		records = []caseFile{single}
	}

	docs := make([]ingestuc.Document, 0, len(records))
	for _, rec := range records {
		doc, err := rec.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c caseFile) toDocument() (ingestuc.Document, error) {
	doc := ingestuc.Document{
		Name:         c.Name,
		Citation:     c.Citation,
		Court:        c.Court,
		Judges:       c.Judges,
		Topics:       c.Topics,
		Jurisdiction: domain.Jurisdiction(c.Jurisdiction),
		DocketNumber: c.DocketNumber,
		SourceURL:    c.SourceURL,
		Text:         c.Text,
	}
	if c.DecisionDate != "" {
		d, err := time.Parse("2006-01-02", c.DecisionDate)
		if err != nil {
			return ingestuc.Document{}, fmt.Errorf("case %q: invalid decision_date %q", c.Name, c.DecisionDate)
		}
		doc.DecisionDate = d
	}
	return doc, nil
}
