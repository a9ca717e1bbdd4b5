// Command orderbookctl replays a scenario file against an in-memory order
// book and reports whether the resulting state matches the file's expected
// result line.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kairos-exchange/orderbook/internal/book"
	"github.com/kairos-exchange/orderbook/internal/scenario"
	"github.com/kairos-exchange/orderbook/pkg/logger"
)

func main() {
	var (
		verbose  = flag.Bool("v", false, "enable debug logging")
		tz       = flag.String("tz", "Local", "timezone the daily GoodForDay cutoff is evaluated in")
		cutoff   = flag.Int("cutoff", 16, "local hour (0-23) at which resident GoodForDay orders are force-cancelled")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	if *verbose {
		*logLevel = "debug"
	}

	zapLogger, err := logger.New(*logLevel, "orderbookctl")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: orderbookctl [-v] [-tz <zone>] <scenario-file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		zapLogger.Fatal("invalid timezone", zap.String("tz", *tz), zap.Error(err))
	}

	f, err := os.Open(path)
	if err != nil {
		zapLogger.Fatal("failed to open scenario file", zap.String("path", path), zap.Error(err))
	}
	defer f.Close()

	s, err := scenario.Parse(f)
	if err != nil {
		zapLogger.Fatal("failed to parse scenario", zap.String("path", path), zap.Error(err))
	}

	if *cutoff < 0 || *cutoff > 23 {
		zapLogger.Fatal("cutoff must be in [0,23]", zap.Int("cutoff", *cutoff))
	}

	b := book.NewBook(book.WithLocation(loc), book.WithCutoffHour(*cutoff))
	defer b.Close()

	scenario.Apply(b, s)

	infos := b.GetOrderInfos()
	zapLogger.Info("scenario replayed",
		zap.String("path", path),
		zap.Int("actions", len(s.Actions)),
		zap.Int("resident_orders", b.Size()),
		zap.Int("bid_levels", len(infos.Bids)),
		zap.Int("ask_levels", len(infos.Asks)),
	)

	if scenario.Matches(b, s) {
		fmt.Printf("PASS: all=%d bids=%d asks=%d\n", b.Size(), len(infos.Bids), len(infos.Asks))
		return
	}

	fmt.Printf("FAIL: expected all=%d bids=%d asks=%d, got all=%d bids=%d asks=%d\n",
		s.Result.AllCount, s.Result.BidCount, s.Result.AskCount,
		b.Size(), len(infos.Bids), len(infos.Asks))
	os.Exit(1)
}
