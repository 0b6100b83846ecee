// Command ingest normalizes a complaint export offline and prints the
// resulting tickets as JSON without starting the HTTP service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/repository"
	"github.com/banza/complaint-desk/internal/rules"
	"github.com/banza/complaint-desk/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file     string
	out      string
	rules    string
	tz       string
	node     int64
	maxMB    int
	logLevel string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("ingest", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.file, "file", "f", "", "CSV or XLSX export to normalize (required)")
	fs.StringVarP(&opts.out, "out", "o", "", "write the JSON report here instead of stdout")
	fs.StringVar(&opts.rules, "rules", "", "YAML file overriding header aliases and keyword rules")
	fs.StringVar(&opts.tz, "tz", "UTC", "time zone for timestamps without an offset")
	fs.Int64Var(&opts.node, "node", 1, "snowflake node for generated ticket codes")
	fs.IntVar(&opts.maxMB, "max-mb", 10, "largest accepted file in MiB")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.file == "" {
		return opts, errors.New("--file is required")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger := newLogger(opts.logLevel, stderr)
	defer logger.Sync() //nolint:errcheck

	report, err := ingestFile(context.Background(), opts, logger)
	if err != nil {
		logger.Error("import failed", zap.String("file", opts.file), zap.Error(err))
		return 1
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("encode report", zap.Error(err))
		return 1
	}
	if opts.out == "" {
		_, _ = stdout.Write(buf.Bytes())
		return 0
	}
	if err := atomic.WriteFile(opts.out, &buf); err != nil {
		logger.Error("write report", zap.String("out", opts.out), zap.Error(err))
		return 1
	}
	logger.Info("report written", zap.String("out", opts.out), zap.Int("imported", report.Imported))
	return 0
}

func ingestFile(ctx context.Context, opts options, logger *zap.Logger) (*report, error) {
	ruleSet, err := rules.Load(opts.rules)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(opts.tz)
	if err != nil {
		return nil, fmt.Errorf("invalid --tz %q: %w", opts.tz, err)
	}
	ids, err := identity.NewGenerator(opts.node)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     repository.NewTicketRepository(),
		Logger:         logger,
		IDs:            ids,
		Rules:          &ruleSet,
		Location:       loc,
		MaxUploadBytes: int64(opts.maxMB) << 20,
	})
	res, err := svc.Import(ctx, filepath.Base(opts.file), f)
	if err != nil {
		return nil, err
	}
	return newReport(res), nil
}

func newLogger(level string, w io.Writer) *zap.Logger {
	lvl := zapcore.WarnLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.WarnLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core)
}

type report struct {
	File            string                 `json:"file"`
	Sheet           string                 `json:"sheet,omitempty"`
	Imported        int                    `json:"imported"`
	Rejected        int                    `json:"rejected"`
	Blank           int                    `json:"blank_rows"`
	NeedsReview     int                    `json:"needs_review"`
	HeaderRow       int                    `json:"header_row"`
	HeaderRecovered bool                   `json:"header_recovered"`
	MissingFields   []string               `json:"missing_fields"`
	Warning         string                 `json:"warning,omitempty"`
	Rejections      []service.RowRejection `json:"rejections"`
	Tickets         []reportTicket         `json:"tickets"`
}

type reportEntry struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

type reportTicket struct {
	TicketID     string                `json:"ticket_id"`
	ConsumerName string                `json:"consumer_name,omitempty"`
	Product      string                `json:"product"`
	LotCode      string                `json:"lot_code"`
	Expiration   string                `json:"expiration"`
	Location     string                `json:"location"`
	Email        string                `json:"email"`
	Complaint    string                `json:"complaint"`
	Category     domain.TicketCategory `json:"category"`
	Severity     domain.TicketSeverity `json:"severity"`
	Status       domain.TicketStatus   `json:"status"`
	NeedsReview  bool                  `json:"needs_review"`
	CreatedAt    time.Time             `json:"created_at"`
	Timeline     []reportEntry         `json:"timeline"`
}

func newReport(res *service.ImportResult) *report {
	r := &report{
		File:            res.FileName,
		Sheet:           res.Sheet,
		Imported:        res.Imported,
		Rejected:        res.Rejected,
		Blank:           res.Blank,
		NeedsReview:     res.NeedsReview,
		HeaderRow:       res.HeaderRow,
		HeaderRecovered: res.HeaderRecovered,
		MissingFields:   append([]string{}, res.MissingFields...),
		Warning:         res.Warning,
		Rejections:      append([]service.RowRejection{}, res.Rejections...),
		Tickets:         make([]reportTicket, 0, len(res.Tickets)),
	}
	for _, t := range res.Tickets {
		rt := reportTicket{
			TicketID:     t.TicketID,
			ConsumerName: t.ConsumerName,
			Product:      t.Product,
			LotCode:      t.LotCode,
			Expiration:   t.Expiration,
			Location:     t.Location,
			Email:        t.Email,
			Complaint:    t.Complaint,
			Category:     t.Category,
			Severity:     t.Severity,
			Status:       t.Status,
			NeedsReview:  t.Review.NeedsReview(),
			CreatedAt:    t.CreatedAt,
		}
		for _, e := range t.Timeline {
			rt.Timeline = append(rt.Timeline, reportEntry{At: e.At, Note: e.Note})
		}
		r.Tickets = append(r.Tickets, rt)
	}
	return r
}
