package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/source"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagImportDir    string
	flagImportTxn    string
	flagImportCreate bool
	flagImportDerive bool
	flagImportDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Apply extracted contract terms from YAML or JSON files",
	Long: "Apply extracted contract terms from YAML or JSON files. Each file names\n" +
		"its transaction (ID or address) unless --txn is given. Files that fail\n" +
		"validation are reported and skipped.",
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagImportDir, "dir", "", "Import every terms file under this directory")
	importCmd.Flags().StringVar(&flagImportTxn, "txn", "", "Apply all files to this transaction")
	importCmd.Flags().BoolVar(&flagImportCreate, "create", true, "Create transactions that do not exist yet")
	importCmd.Flags().BoolVar(&flagImportDerive, "derive", true, "Fill default offsets after applying terms")
	importCmd.Flags().BoolVarP(&flagImportDryRun, "dry-run", "n", false, "Parse and validate without writing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if flagImportDir == "" && len(args) == 0 {
		return errors.New("pass terms files or --dir")
	}
	cat, err := catalog()
	if err != nil {
		return err
	}

	result, err := loadTerms(cat, flagImportDir, args, func(current, total int) {
		progress("\r  %s", cli.RenderProgressBar(current, total, 30))
	})
	if err != nil {
		return err
	}
	progress("\r  %-48s\n", fmt.Sprintf("Parsed %d/%d files", result.Parsed, result.TotalFiles))

	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "  skip: %v\n", f.Err)
	}
	if flagImportDryRun || len(result.Terms) == 0 {
		return nil
	}

	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		applied := 0
		for _, terms := range result.Terms {
			n, txn, err := applyTerms(ctx, st, cat, terms)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  skip %s: %v\n", terms.Path, err)
				continue
			}
			applied++
			fmt.Printf("  %s  %-40s %d milestone(s)\n", shortID(txn.ID), txn.ShortAddress(), n)
		}
		logger.Info("terms imported",
			zap.Int("files", result.TotalFiles), zap.Int("applied", applied), zap.Int("failed", len(result.Failures)))
		if applied < len(result.Terms) || len(result.Failures) > 0 {
			return fmt.Errorf("%d of %d file(s) were not imported", result.TotalFiles-applied, result.TotalFiles)
		}
		return nil
	})
}

// loadTerms parses the terms files under dir plus the named paths.
func loadTerms(cat model.Catalog, dir string, paths []string, progressFn pipeline.ProgressFunc) (*pipeline.LoadResult, error) {
	if len(paths) == 0 {
		return pipeline.LoadDir(dir, cat, progressFn)
	}

	var files []source.DiscoveredFile
	if dir != "" {
		found, err := source.ScanDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		files = append(files, found...)
	}
	for _, path := range paths {
		df, ok := source.Discover(path)
		if !ok {
			return nil, fmt.Errorf("%s: not a .yaml, .yml or .json file", path)
		}
		files = append(files, df)
	}
	progress("  Parsing %d terms file(s)...\n", len(files))
	return pipeline.LoadFiles(files, cat, progressFn), nil
}

// applyTerms writes one extraction result and returns the number of
// milestones it touched.
func applyTerms(ctx context.Context, st store.Store, cat model.Catalog, terms source.Terms) (int, model.Transaction, error) {
	ref := flagImportTxn
	if ref == "" {
		ref = terms.Transaction
	}
	if ref == "" {
		return 0, model.Transaction{}, errors.New("no transaction named in the file or by --txn")
	}

	txn, err := store.Resolve(ctx, st, ref)
	switch {
	case errors.Is(err, store.ErrNotFound) && flagImportCreate:
		txn = model.Transaction{Address: ref, Side: model.SideBuyer}
		if err := st.CreateTransaction(ctx, &txn); err != nil {
			return 0, txn, err
		}
	case err != nil:
		return 0, txn, err
	}

	rec, err := st.LoadRecord(ctx, txn.ID)
	if err != nil {
		return 0, txn, err
	}
	patches, err := pipeline.ApplyTerms(rec, cat, terms)
	if err != nil {
		return 0, txn, err
	}
	if err := st.SaveMilestones(ctx, txn.ID, patches); err != nil {
		return 0, txn, err
	}

	n := len(patches)
	if flagImportDerive {
		derived, err := deriveAndSave(ctx, st, cat, txn.ID, false)
		if err != nil {
			return n, txn, err
		}
		n += derived
	}
	return n, txn, nil
}
