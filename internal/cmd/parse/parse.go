package parse

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/clambin/energyua-monitor/internal/configuration"
	"github.com/clambin/energyua-monitor/internal/fetcher"
	"github.com/clambin/energyua-monitor/internal/parser"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	Cmd = cobra.Command{
		Use:   "parse [file|url|-]",
		Short: "Parse a schedule page and show the resulting snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := configuration.Location(viper.GetString("timezone"))
			if err != nil {
				return err
			}
			now, err := evaluationTime(viper.GetString("parse.at"), loc)
			if err != nil {
				return err
			}
			pretrigger, err := configuration.Pretrigger(viper.GetViper())
			if err != nil {
				return err
			}
			p, err := parser.New(parser.Mode(viper.GetString("parser.mode")))
			if err != nil {
				return err
			}
			raw, err := read(cmd.Context(), args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			e := yaml.NewEncoder(cmd.OutOrStdout())
			defer func() { _ = e.Close() }()
			return Parse(raw, p, now, pretrigger, e)
		},
	}

	args = charmer.Arguments{
		"parse.at": {Default: "", Help: "evaluate the page at this time (RFC3339). Default: now"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

type Encoder interface {
	Encode(any) error
}

type report struct {
	Strategy string            `yaml:"strategy"`
	Dropped  int               `yaml:"dropped"`
	Snapshot schedule.Snapshot `yaml:"snapshot"`
}

// Parse runs the page through p and encodes the snapshot at time now.
func Parse(raw string, p parser.Parser, now time.Time, pretrigger schedule.Pretrigger, e Encoder) error {
	result := p.Parse(parser.NewPage(raw), now)
	return e.Encode(report{
		Strategy: result.Strategy.String(),
		Dropped:  result.Dropped,
		Snapshot: result.State.Evaluate(now, pretrigger),
	})
}

func read(ctx context.Context, source string, stdin io.Reader) (string, error) {
	switch {
	case source == "-":
		body, err := io.ReadAll(stdin)
		return string(body), err
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetcher.New(nil).Fetch(ctx, source)
	default:
		body, err := os.ReadFile(source)
		return string(body), err
	}
}

func evaluationTime(at string, loc *time.Location) (time.Time, error) {
	if at == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse.at: %w", err)
	}
	return t.In(loc), nil
}
