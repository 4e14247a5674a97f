// Command tableexport converts result files written by the service's file
// exporter (RESULTS_DIR/<id>.json) into spreadsheet-friendly CSV.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/repository"
	"github.com/anime-shed/table-inspector-go/internal/table"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.WithError(err).Error("Table export failed")
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tableexport", flag.ContinueOnError)
	in := fs.String("in", "", "result JSON file")
	out := fs.String("out", "", "CSV destination (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	result, err := repository.LoadResultFromFile(*in)
	if err != nil {
		return err
	}
	if !result.IsTable {
		logger.WithField("file", *in).Warn("Result is not marked as a table")
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := table.WriteCSV(w, result.TableData); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"file": *in,
		"rows": result.TableData.Rows(),
		"cols": result.TableData.Cols(),
	}).Debug("Table exported")
	return nil
}
