package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/config"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	Session  string
	Seed     uint64

	Coupling        float64
	Threshold       float64
	Personalization float64

	Agents   int
	Strict   bool
	Enhance  bool
	Response string

	// SessionGenerator overrides session id generation (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionIDGenerator

	// Now overrides the wall clock (for testing).
	Now func() time.Time
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [prompt...]",
		Short: "Synchronize and gate prompts",
		Long: `Run prompts through phase synchronization and the coherence gate.

The arguments are joined into one prompt. Without arguments, every
non-blank line of stdin is a prompt, processed in order in one session so
that earlier runs shape the adaptive threshold of later ones.

Exit codes:
  0 - Success
  1 - A prompt was blocked (with --strict)
  2 - Command error (invalid parameters, unreadable config, database error)

Examples:
  resona run "hello world" --coupling 2
  resona run --agents 5 --strict
  resona run "what is phase locking" --response "phase locking is ..."
  generate.sh | resona run "what is phase locking" --response -
  cat prompts.txt | resona run --db ./resona.db --format json
  resona run --db ./resona.db --session 0190a5c2-... "continue the session"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompts(opts, args, cmd)
		},
	}

	defaults := engine.DefaultParams()
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().StringVar(&opts.Session, "session", "", "resume an existing session id (requires --db)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for reproducible runs")
	cmd.Flags().Float64VarP(&opts.Coupling, "coupling", "k", defaults.Coupling, "coupling strength K")
	cmd.Flags().Float64VarP(&opts.Threshold, "threshold", "t", defaults.Threshold, "nominal gate threshold τ")
	cmd.Flags().Float64VarP(&opts.Personalization, "personalization", "p", defaults.Personalization, "personalization strength P")
	cmd.Flags().IntVar(&opts.Agents, "agents", 0, "run a multi-agent consensus vote with this many agents instead of prompts")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when the gate blocks")
	cmd.Flags().BoolVar(&opts.Enhance, "enhance", false, "print the coherence-enhanced prompt instead of gating")
	cmd.Flags().StringVar(&opts.Response, "response", "", "gate this generated response against the prompt (\"-\" reads stdin)")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("coupling") {
		cfg.Params.Coupling = opts.Coupling
	}
	if flags.Changed("threshold") {
		cfg.Params.Threshold = opts.Threshold
	}
	if flags.Changed("personalization") {
		cfg.Params.Personalization = opts.Personalization
	}
	if flags.Changed("seed") {
		seed := opts.Seed
		cfg.Seed = &seed
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

func runPrompts(opts *RunOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if err := cfg.Params.Validate(); err != nil {
		return out.fail(ExitCommandError, ErrCodeParams, "invalid parameters", err)
	}
	if opts.Session != "" && cfg.Database == "" {
		return out.fail(ExitCommandError, ErrCodeDatabase, "--session requires --db", nil)
	}

	engOpts := append(cfg.EngineOptions(), engine.WithLogger(slog.Default()))
	if opts.SessionGenerator != nil {
		engOpts = append(engOpts, engine.WithSessionIDGenerator(opts.SessionGenerator))
	}
	if opts.Now != nil {
		engOpts = append(engOpts, engine.WithNow(opts.Now))
	}

	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return out.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithRecorder(st))

		if opts.Session != "" {
			last, err := st.LastSeq(ctx, opts.Session)
			if err != nil {
				return out.fail(ExitCommandError, ErrCodeDatabase, "failed to read session", err)
			}
			slog.Debug("resuming session", "session", opts.Session, "last_seq", last)
			engOpts = append(engOpts, engine.WithSession(opts.Session, last))
		}
	}

	eng := engine.New(engOpts...)
	slog.Debug("session started", "session", eng.SessionID(), "seed", eng.Seed())

	if cmd.Flags().Changed("response") {
		return runResponse(ctx, opts, out, eng, cfg, args, cmd.InOrStdin())
	}

	if opts.Agents > 0 {
		return runAgents(ctx, opts, out, eng, cfg)
	}

	prompts, err := collectPrompts(args, cmd.InOrStdin())
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeParams, "failed to read prompts", err)
	}
	if len(prompts) == 0 {
		return out.fail(ExitCommandError, ErrCodeParams, "no prompt given: pass arguments or pipe prompts on stdin", nil)
	}

	if opts.Enhance {
		return runEnhance(opts, out, eng, cfg, prompts)
	}

	results := make([]engine.Result, 0, len(prompts))
	blocked := 0
	for _, prompt := range prompts {
		res := eng.Process(ctx, prompt, cfg.Params)
		results = append(results, res)
		if !res.Decision.Passed {
			blocked++
		}
	}

	var data any = results
	if len(results) == 1 {
		data = results[0]
	}
	text := func(w io.Writer) {
		for i, res := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeResult(w, res)
		}
	}

	if opts.Strict && blocked > 0 {
		if err := out.EmitFailure(data, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d prompt(s) blocked by the coherence gate", blocked, len(results)))
	}
	return out.Emit(data, text)
}

func runAgents(ctx context.Context, opts *RunOptions, out *OutputFormatter, eng *engine.Engine, cfg config.Config) error {
	res := eng.RunAgents(ctx, opts.Agents, cfg.Params)
	text := func(w io.Writer) { writeAgents(w, res) }

	if opts.Strict && !res.Vote.Passed {
		if err := out.EmitFailure(res, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("consensus not reached: %d of %d agents approved", res.Vote.Approvals, res.Vote.Total))
	}
	return out.Emit(res, text)
}

// runResponse gates an externally generated response against the prompt it
// answers.
func runResponse(ctx context.Context, opts *RunOptions, out *OutputFormatter, eng *engine.Engine, cfg config.Config, args []string, stdin io.Reader) error {
	if len(args) == 0 {
		return out.fail(ExitCommandError, ErrCodeParams, "--response needs the prompt as arguments", nil)
	}
	if opts.Enhance || opts.Agents > 0 {
		return out.fail(ExitCommandError, ErrCodeParams, "--response cannot be combined with --enhance or --agents", nil)
	}

	response := opts.Response
	if response == "-" {
		if stdin == nil {
			return out.fail(ExitCommandError, ErrCodeParams, "no response on stdin", nil)
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return out.fail(ExitCommandError, ErrCodeParams, "failed to read response", err)
		}
		response = strings.TrimSpace(string(data))
	}

	prompt := strings.Join(args, " ")
	pre := eng.Preprocess(prompt, cfg.Params)
	res := eng.Postprocess(ctx, response, pre, cfg.Params)
	text := func(w io.Writer) { writeResult(w, res) }

	if opts.Strict && !res.Decision.Passed {
		if err := out.EmitFailure(res, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "response blocked by the coherence gate")
	}
	return out.Emit(res, text)
}

// EnhancedPrompt is the output of run --enhance.
type EnhancedPrompt struct {
	Prompt         string               `json:"prompt"`
	EnhancedPrompt string               `json:"enhanced_prompt"`
	Preprocessing  engine.Preprocessing `json:"preprocessing"`
}

func runEnhance(opts *RunOptions, out *OutputFormatter, eng *engine.Engine, cfg config.Config, prompts []string) error {
	enhanced := make([]EnhancedPrompt, 0, len(prompts))
	for _, prompt := range prompts {
		pre := eng.Preprocess(prompt, cfg.Params)
		enhanced = append(enhanced, EnhancedPrompt{
			Prompt:         prompt,
			EnhancedPrompt: engine.EnhancePrompt(prompt, pre),
			Preprocessing:  pre,
		})
	}

	var data any = enhanced
	if len(enhanced) == 1 {
		data = enhanced[0]
	}
	return out.Emit(data, func(w io.Writer) {
		for i, e := range enhanced {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, e.EnhancedPrompt)
		}
	})
}

// collectPrompts joins args into one prompt, or reads one prompt per
// non-blank line of r when there are no args.
func collectPrompts(args []string, r io.Reader) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}
	if r == nil {
		return nil, nil
	}

	var prompts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, scanner.Err()
}

func writeResult(w io.Writer, res engine.Result) {
	d := res.Decision

	converged := "cap reached"
	if res.Converged {
		converged = "converged"
	}
	verdict := "BLOCKED"
	if d.Passed {
		verdict = "PASSED"
	}

	fmt.Fprintf(w, "session    %s  seq %d\n", res.SessionID, res.Seq)
	fmt.Fprintf(w, "tokens     %d  iterations %d (%s)\n", res.TokenCount, res.Iterations, converged)
	fmt.Fprintf(w, "order      R=%.4f  ψ=%+.4f  variance=%.4f  entropy=%.4f\n",
		res.OrderParameter, res.MeanPhase, res.PhaseVariance, res.Entropy)
	fmt.Fprintf(w, "coherence  %.4f (raw %.4f)  threshold %.4f  resonance %.4f\n",
		res.Coherence, res.RawCoherence, d.AdaptiveThreshold, res.Resonance)
	fmt.Fprintf(w, "gate       %s  quality: %s\n", verdict, subchecks(d.Subchecks))
	if d.Amplified {
		names := make([]string, len(d.Stages))
		for i, s := range d.Stages {
			names[i] = fmt.Sprintf("%s %.4f→%.4f", s.Name, s.Before, s.After)
		}
		fmt.Fprintf(w, "amplified  %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "response   %s\n", res.Response)
}

func writeAgents(w io.Writer, res engine.AgentResult) {
	verdict := "NO CONSENSUS"
	if res.Vote.Passed {
		verdict = "CONSENSUS"
	}
	fmt.Fprintf(w, "session    %s  seq %d\n", res.SessionID, res.Seq)
	fmt.Fprintf(w, "agents     %d  iterations %d\n", res.Agents, res.Iterations)
	fmt.Fprintf(w, "order      R=%.4f  coherence %.4f\n", res.Snapshot.OrderParameter, res.Snapshot.Coherence)
	for i, score := range res.Scores {
		fmt.Fprintf(w, "  agent %-3d phase %.4f  score %.4f\n", i, res.Phases[i], score)
	}
	fmt.Fprintf(w, "vote       %s  %d/%d approved (%.0f%%)\n",
		verdict, res.Vote.Approvals, res.Vote.Total, res.Vote.PassRate*100)
}

func subchecks(s gate.Subchecks) string {
	mark := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "fail"
	}
	return fmt.Sprintf("R %s, entropy %s, variance %s",
		mark(s.OrderParameterOK), mark(s.EntropyOK), mark(s.VarianceOK))
}
