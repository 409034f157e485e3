// qkdsim simulates BB84 and E91 key distribution for each entry in the
// cartesian product of a collection of parameters, e.g. eavesdropping rate and
// qubits exchanged, and outputs a CSV of key statistics for each combination.
// Other modes sweep the eavesdropping rate, export the qubits of a single
// simulation, list stored history, or request commentary from a text
// generation service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/alan-christopher/qkdsim/config"
	"github.com/alan-christopher/qkdsim/logger"
	"github.com/alan-christopher/qkdsim/qkd"
)

var inputs = []string{"protocol", "qubits", "runs", "noise", "rect", "eve", "qber"}

type flags struct {
	fs *flag.FlagSet

	seed        *int64
	parallel    *int
	sample      *float64
	mode        *string
	configPath  *string
	out         *string
	history     *string
	dump        *string
	metricsFile *string
	language    *string
	logLevel    *string
	logFile     *string
}

func newFlags(name string) *flags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringSlice("protocol", []string{qkd.BB84.String()}, "The protocols to simulate, BB84 or E91.")
	fs.IntSlice("qubits", []int{200}, "The qubits, or entangled pairs, exchanged per run.")
	fs.IntSlice("runs", []int{1}, "The runs to average each result over.")
	fs.StringSlice("noise", []string{"SimpleQBER"}, "The channel noise models, SimpleQBER or Depolarizing.")
	fs.Float64Slice("rect", []float64{50}, "The percent chance of choosing the rectilinear basis.")
	fs.Float64Slice("eve", []float64{20}, "The percent chance the eavesdropper intercepts each qubit.")
	fs.Float64Slice("qber", []float64{2}, "The channel error, or depolarization, percentage.")
	return &flags{
		fs:          fs,
		seed:        fs.Int64("seed", 1, "Seed for the simulation's random source."),
		parallel:    fs.Int("parallel", qkd.DefaultParallelism, "The runs of one simulation to execute concurrently."),
		sample:      fs.Float64("sample", qkd.DefaultSampleProportion, "The proportion of the sifted key revealed to estimate QBER."),
		mode:        fs.String("mode", "aggregate", "One of aggregate, sweep, export, history, analyze or educate."),
		configPath:  fs.String("config", "", "A YAML file supplying defaults for flags not set on the command line."),
		out:         fs.String("out", "", "Where to write output. Defaults to stdout."),
		history:     fs.String("history", "", "Directory of the simulation history database. Empty disables history."),
		dump:        fs.String("dump", "", "In history mode, also write every stored record to this file."),
		metricsFile: fs.String("metrics-file", "", "Write Prometheus metrics in the textfile format to this path on exit."),
		language:    fs.String("language", "English", "The language commentary is requested in."),
		logLevel:    fs.String("loglevel", "info", "One of trace, debug, info, warn, error or fatal."),
		logFile:     fs.String("logfile", "", "Also write JSON logs to this file, rotated by size."),
	}
}

func main() {
	f := newFlags(os.Args[0])
	if err := f.fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	log := logger.Create(logger.Config{MinLevel: *f.logLevel, Console: true, File: *f.logFile})
	if *f.configPath != "" {
		warnings, err := f.applyConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("Loading configuration")
		}
		if warnings != "" {
			log.Warn().Str("config", *f.configPath).Msg(warnings)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	r, err := newRunner(f, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Setting up")
	}
	err = r.run(ctx, os.Stdout)
	if cerr := r.close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", *f.mode).Msg("qkdsim failed")
	}
}

// applyConfig fills every flag not set on the command line from the
// configuration file.
func (f *flags) applyConfig() (string, error) {
	cfg, warnings, err := config.Load(*f.configPath)
	if err != nil {
		return "", err
	}
	vals := map[string]string{
		"protocol": cfg.Protocol,
		"qubits":   strconv.Itoa(cfg.Qubits),
		"runs":     strconv.Itoa(cfg.Runs),
		"noise":    cfg.NoiseModel,
		"rect":     formatFloat(cfg.RectilinearPercent),
		"eve":      formatFloat(cfg.EavesdropPercent),
		"qber":     formatFloat(cfg.QBERPercent),
		"seed":     strconv.FormatInt(cfg.Seed, 10),
		"parallel": strconv.Itoa(cfg.Parallelism),
		"sample":   formatFloat(cfg.SampleProportion),
	}
	for name, v := range vals {
		if f.fs.Changed(name) {
			continue
		}
		if err := f.fs.Set(name, v); err != nil {
			return "", fmt.Errorf("applying %s from %s: %w", name, *f.configPath, err)
		}
	}
	return warnings, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// experiments expands the parameter flags into one Experiment per element of
// their cartesian product.
func (f *flags) experiments() ([]*Experiment, error) {
	var args [][]any
	for _, inp := range inputs {
		a, err := lookupInput(f.fs, inp)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	var exps []*Experiment
	applyCartesian(func(args []any) {
		exps = append(exps, &Experiment{
			Protocol: args[inpIndex("protocol")].(string),
			Qubits:   args[inpIndex("qubits")].(int),
			Runs:     args[inpIndex("runs")].(int),
			Noise:    args[inpIndex("noise")].(string),
			Rect:     args[inpIndex("rect")].(float64),
			Eve:      args[inpIndex("eve")].(float64),
			QBER:     args[inpIndex("qber")].(float64),
		})
	}, args)
	return exps, nil
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func header(columns []string) string {
	return strings.Join(columns, ", ")
}

func lineTmpl(columns []string) string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(fs *flag.FlagSet, name string) ([]any, error) {
	var r []any
	if v, err := fs.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := fs.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := fs.GetStringSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		return nil, fmt.Errorf("unknown type for input %s", name)
	}
	if len(r) == 0 {
		return nil, fmt.Errorf("no values for input %s", name)
	}
	return r, nil
}

func applyCartesian(f func([]any), args [][]any) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]any, len(args))
		r := make([][]any, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]any, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
