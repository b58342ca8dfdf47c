// Command starfield generates a galaxy offline and writes it out as a
// binary buffer, CSV rows, a JSON summary or the effective parameters.
//
//	starfield -params galaxy.yaml -seed 7 -format csv -o stars.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"starfield-server/internal/shared/config"
	"starfield-server/internal/shared/errors"
	"starfield-server/internal/shared/logger"
	"starfield-server/internal/starfield"
)

const (
	formatBinary  = "binary"
	formatCSV     = "csv"
	formatSummary = "summary"
	formatParams  = "params"
)

type options struct {
	paramsFile string
	output     string
	format     string
	logLevel   string
	seed       uint
	stars      int
	bulgeStars int
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("starfield", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.paramsFile, "params", "", "YAML parameter file (defaults when empty)")
	fs.StringVar(&opts.output, "o", "", "output file (stdout when empty)")
	fs.StringVar(&opts.format, "format", formatSummary, "output format: binary, csv, summary or params")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.UintVar(&opts.seed, "seed", 0, "override the seed")
	fs.IntVar(&opts.stars, "stars", 0, "override star_count")
	fs.IntVar(&opts.bulgeStars, "bulge-stars", 0, "override bulge_star_count")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	switch opts.format {
	case formatBinary, formatCSV, formatSummary, formatParams:
	default:
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.format == formatParams && opts.output == "" {
		return options{}, fmt.Errorf("-format params requires -o")
	}
	if opts.seed > 1<<32-1 {
		return options{}, fmt.Errorf("seed %d does not fit in 32 bits", opts.seed)
	}
	return opts, nil
}

func (o options) parameters() (starfield.Parameters, error) {
	p, err := starfield.LoadParameters(o.paramsFile)
	if err != nil {
		return starfield.Parameters{}, err
	}
	if o.set["seed"] {
		p.Seed = uint32(o.seed)
	}
	if o.set["stars"] {
		p.StarCount = o.stars
	}
	if o.set["bulge-stars"] {
		p.BulgeStarCount = o.bulgeStars
	}
	return p, p.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log := logger.New(config.LoggingConfig{Level: opts.logLevel}, stderr).
		With("component", "starfield_cli")

	p, err := opts.parameters()
	if err != nil {
		return err
	}

	if opts.format == formatParams {
		return p.WriteYAML(opts.output)
	}

	buf, err := starfield.Generate(ctx, p)
	if err != nil {
		return err
	}
	log.Info("Star field generated", "stars", buf.Count, "seed", p.Seed, "bytes", buf.SizeBytes())

	diskCount := p.Normalize().StarCount
	emit := func(out io.Writer) error { return writeStars(out, opts.format, buf, diskCount) }
	if opts.output == "" {
		return emit(stdout)
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	return writeAndClose(f, emit)
}

func writeStars(out io.Writer, format string, buf *starfield.StarBuffer, diskCount int) error {
	switch format {
	case formatBinary:
		data, err := buf.MarshalBinary()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case formatCSV:
		return starfield.WriteCSV(out, buf, diskCount)
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(starfield.Summarize(buf, diskCount))
	}
}

// writeAndClose runs write against w and always closes it. A failed Close
// means buffered bytes never reached the file, so it is reported unless
// write already failed.
func writeAndClose(w io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", cerr)
		}
	}()
	return write(w)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.IsCancelled(err):
		fmt.Fprintln(os.Stderr, "cancelled")
		os.Exit(130)
	case err == flag.ErrHelp:
		os.Exit(0)
	default:
		slog.Error("starfield failed", "error", err)
		os.Exit(1)
	}
}
