package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/lexhaven/lexsearch/internal/domain"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "load a case corpus and run a one-shot query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "directory of *.json case files to index first",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-results",
				Usage: "result list bound",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON",
			},
		},
		Action: runSearch,
	}
}

func runSearch(cliCtx *cli.Context) error {
	query := cliCtx.Args().First()
	if query == "" {
		return errors.New("query argument required")
	}

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
	if _, err := comps.ingestSvc.IngestBatch(ctx, docs); err != nil {
		return fmt.Errorf("index corpus: %w", err)
	}

	results, err := comps.searchSvc.Search(ctx, domain.SearchQuery{
		Query:      query,
		MaxResults: cliCtx.Int("max-results"),
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if cliCtx.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. %s", i+1, r.Case.Name)
		if r.Case.Citation != "" {
			fmt.Printf(", %s", r.Case.Citation)
		}
		fmt.Printf("  [%s, score %.3f]\n", r.MatchType, r.Score)
		if r.Snippet != "" {
			fmt.Printf("    %s\n", r.Snippet)
		}
	}
	return nil
}
