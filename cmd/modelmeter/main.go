package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelmeter/internal/api"
	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/config"
	"github.com/everstacklabs/modelmeter/internal/diff"
	"github.com/everstacklabs/modelmeter/internal/estimate"
	"github.com/everstacklabs/modelmeter/internal/pipeline"
	"github.com/everstacklabs/modelmeter/internal/tokenizer"
	"github.com/everstacklabs/modelmeter/internal/validate"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile    string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "modelmeter",
		Short:         "LLM model catalog and token cost estimator",
		Long:          "Fetches the public model listing, merges it with curated pricing data and estimates token counts and costs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		listCmd(),
		showCmd(),
		searchCmd(),
		estimateCmd(),
		refreshCmd(),
		cacheCmd(),
		validateCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func listCmd() *cobra.Command {
	var (
		view     string
		provider string
		category string
		free     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models (pricing, comparison or detailed view)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				f := pipeline.Filter{Provider: provider, Category: catalog.Category(category), FreeOnly: free}
				if category != "" && !f.Category.Valid() {
					return fmt.Errorf("invalid --category %q", category)
				}
				if cmd.Flags().Changed("multimodal") {
					mm, _ := cmd.Flags().GetBool("multimodal")
					f.Multimodal = &mm
				}

				switch view {
				case "pricing":
					records, err := p.PricingModels(ctx)
					warn(err)
					return printPricing(matchPricing(records, f))
				case "comparison":
					records, err := p.ComparisonModels(ctx)
					warn(err)
					return printComparison(matchComparison(records, f))
				case "detailed":
					models, err := p.Filter(ctx, f)
					warn(err)
					return printDetailed(models)
				default:
					return fmt.Errorf("invalid --view %q: use pricing, comparison or detailed", view)
				}
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", "pricing", "pricing, comparison or detailed")
	cmd.Flags().StringVar(&provider, "provider", "", "only models of this provider")
	cmd.Flags().StringVar(&category, "category", "", "flagship, efficient, specialized, standard or free")
	cmd.Flags().BoolVar(&free, "free", false, "only free models")
	cmd.Flags().Bool("multimodal", false, "only multimodal (or, with =false, text-only) models")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <provider/model>",
		Short: "Show one model with its classification and tokenizer profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				d, err := p.Model(ctx, args[0])
				if err != nil {
					return err
				}
				profile := tokenizer.FromEntry(d.Entry)
				if jsonOutput {
					return printJSON(map[string]any{"model": d, "profile": profile})
				}

				fmt.Printf("%s (%s)\n", d.Pricing.Name, d.Entry.ID)
				fmt.Printf("  provider:        %s\n", d.Provider)
				fmt.Printf("  category / tier: %s / %s\n", d.Classification.Category, d.Classification.Tier)
				fmt.Printf("  cost per 1K:     in $%.6f / out $%.6f\n", d.Pricing.InputCost, d.Pricing.OutputCost)
				fmt.Printf("  context:         %s\n", d.Pricing.ContextWindow)
				fmt.Printf("  parameters:      %s\n", d.Comparison.Parameters)
				fmt.Printf("  inputs:          %s\n", strings.Join(d.Capabilities.InputModalities, ", "))
				fmt.Printf("  capabilities:    %s\n", capabilityList(d))
				fmt.Printf("  tokenizer:       %s (%.2f tokens/word, %.1f chars/token)\n",
					profile.Family, profile.AvgTokensPerWord, profile.AvgCharsPerToken)
				if d.Entry.Description != "" {
					fmt.Printf("\n%s\n", d.Entry.Description)
				}
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search models by name, identifier and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				models, err := p.Search(ctx, strings.Join(args, " "))
				warn(err)
				return printDetailed(models)
			})
		},
	}
}

func estimateCmd() *cobra.Command {
	var (
		model       string
		text        string
		file        string
		outputWords int
		media       estimate.Media
		imageSize   string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate tokens and cost of an input for a model",
		Long:  "Text is read from --text, --file, or stdin when neither is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(text, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			media.ImageSize = tokenizer.ImageSize(imageSize)
			if !media.ImageSize.Valid() {
				return fmt.Errorf("invalid --image-size %q: use small or large", imageSize)
			}

			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				m, profile, err := p.Estimate(ctx, model, input, media, outputWords)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(map[string]any{"model": model, "profile": profile, "metrics": m})
				}

				method := "heuristic"
				if m.Exact {
					method = "exact"
				}
				fmt.Printf("Model:    %s (%s, %s)\n", profile.Name, profile.Provider, profile.Family)
				fmt.Printf("Text:     %d characters, %d words, %d sentences, %d paragraphs\n",
					m.Characters, m.Words, m.Sentences, m.Paragraphs)
				fmt.Printf("Tokens:   text %d (%s), image %d, video %d, audio %d\n",
					m.Tokens.Text, method, m.Tokens.Image, m.Tokens.Video, m.Tokens.Audio)
				fmt.Printf("Total:    %d tokens (%.1f%% of %d context)\n", m.TotalTokens, m.ContextUsagePercent, profile.ContextWindow)
				if profile.HasCost() {
					fmt.Printf("Cost:     $%.6f\n", m.EstimatedCost)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model identifier or curated model name")
	cmd.Flags().StringVar(&text, "text", "", "input text")
	cmd.Flags().StringVar(&file, "file", "", "read input text from file")
	cmd.Flags().IntVar(&outputWords, "output-words", 0, "expected output length in words")
	cmd.Flags().IntVar(&media.ImageCount, "images", 0, "number of images")
	cmd.Flags().IntVar(&media.ImageWidth, "image-width", 0, "image width in pixels")
	cmd.Flags().IntVar(&media.ImageHeight, "image-height", 0, "image height in pixels")
	cmd.Flags().StringVar(&imageSize, "image-size", "", "image size category: small or large")
	cmd.Flags().Float64Var(&media.VideoSeconds, "video-seconds", 0, "video duration in seconds")
	cmd.Flags().Float64Var(&media.AudioSeconds, "audio-seconds", 0, "audio duration in seconds")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func readInput(text, file string, stdin io.Reader) (string, error) {
	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("--text and --file are mutually exclusive")
	case text != "":
		return text, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload every catalog from upstream and show pricing changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				cs, err := p.Refresh(ctx)
				warn(err)
				if jsonOutput {
					return printJSON(cs)
				}
				fmt.Print(diff.RenderSummary(cs))
				return nil
			})
		},
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the catalog cache",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every cache slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				slots := p.CacheStatus(ctx)
				if jsonOutput {
					return printJSON(slots)
				}
				fmt.Printf("%-12s %-8s %-8s %-25s %s\n", "SLOT", "DATA", "VALID", "WRITTEN", "EXPIRES IN")
				for _, s := range slots {
					written := "-"
					if s.Timestamp > 0 {
						written = time.UnixMilli(s.Timestamp).Format(time.RFC3339)
					}
					expires := time.Duration(s.TimeUntilExpiryMs) * time.Millisecond
					fmt.Printf("%-12s %-8t %-8t %-25s %s\n", s.Slot, s.HasData, s.IsValid, written, expires.Round(time.Second))
				}
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [slot]",
		Short: "Clear one slot (pricing, comparison, detailed) or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var slot pipeline.Slot
			if len(args) == 1 {
				s, err := pipeline.ParseSlot(args[0])
				if err != nil {
					return err
				}
				slot = s
			}
			return withPipeline(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				return p.ClearCache(ctx, slot)
			})
		},
	}

	cmd.AddCommand(status, clearCmd)
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the curated dataset (CI check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			staticPath, _ := cmd.Flags().GetString("static-path")
			if staticPath == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				staticPath = cfg.StaticPath
			}

			ds, err := catalog.LoadStatic(staticPath)
			if err != nil {
				return err
			}

			result := validate.Static(ds)
			fmt.Println(validate.FormatResult(result))

			if result.HasErrors() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().String("static-path", "", "curated dataset file (default: from config, else embedded)")

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, closeFn, err := pipeline.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			// Warm the catalogs; failures are served as warnings later.
			if err := p.Load(ctx); err != nil {
				slog.Warn("initial catalog load incomplete", "error", err)
			}

			if cfg.SlogLevel() != slog.LevelDebug {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(p, api.RouterOptions{Version: version, CORSOrigins: cfg.Server.CORSOrigins}),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      2 * time.Minute,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("modelmeter listening", "addr", addr, "version", version)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config)")

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}

func withPipeline(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, closeFn, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, p)
}

// warn reports an advisory upstream failure; the data printed after it is
// curated or cached.
func warn(err error) {
	if err != nil {
		slog.Warn("catalog served from cache or curated data", "error", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func matchPricing(records []catalog.PricingRecord, f pipeline.Filter) []catalog.PricingRecord {
	var out []catalog.PricingRecord
	for _, r := range records {
		if f.MatchPricing(r) {
			out = append(out, r)
		}
	}
	return out
}

func matchComparison(records []catalog.ComparisonRecord, f pipeline.Filter) []catalog.ComparisonRecord {
	var out []catalog.ComparisonRecord
	for _, r := range records {
		if f.MatchComparison(r) {
			out = append(out, r)
		}
	}
	return out
}

func printPricing(records []catalog.PricingRecord) error {
	if jsonOutput {
		return printJSON(records)
	}
	fmt.Printf("%-40s %-14s %12s %12s %-12s %s\n", "NAME", "PROVIDER", "IN/1K", "OUT/1K", "CATEGORY", "CONTEXT")
	for _, r := range records {
		fmt.Printf("%-40s %-14s %12.6f %12.6f %-12s %s\n", r.Name, r.Provider, r.InputCost, r.OutputCost, r.Category, r.ContextWindow)
	}
	fmt.Printf("\nTotal: %d models\n", len(records))
	return nil
}

func printComparison(records []catalog.ComparisonRecord) error {
	if jsonOutput {
		return printJSON(records)
	}
	fmt.Printf("%-40s %-14s %-10s %9s %5s %5s %5s %5s %-5s %s\n",
		"NAME", "PROVIDER", "PARAMS", "CONTEXT", "SPD", "RSN", "COD", "CRE", "MM", "LANGS")
	for _, r := range records {
		fmt.Printf("%-40s %-14s %-10s %9d %5d %5d %5d %5d %-5t %d\n",
			r.Name, r.Provider, r.Parameters, r.ContextWindow, r.Speed, r.Reasoning, r.Coding, r.Creative, r.Multimodal, r.Languages)
	}
	fmt.Printf("\nTotal: %d models\n", len(records))
	return nil
}

func printDetailed(models []pipeline.Detailed) error {
	if jsonOutput {
		return printJSON(models)
	}
	fmt.Printf("%-50s %-14s %-12s %-10s %s\n", "ID", "PROVIDER", "CATEGORY", "TIER", "INPUTS")
	for _, d := range models {
		fmt.Printf("%-50s %-14s %-12s %-10s %s\n",
			d.Entry.ID, d.Provider, d.Classification.Category, d.Classification.Tier, strings.Join(d.Capabilities.InputModalities, ","))
	}
	fmt.Printf("\nTotal: %d models\n", len(models))
	return nil
}

func capabilityList(d *pipeline.Detailed) string {
	var caps []string
	for _, c := range []struct {
		name string
		on   bool
	}{
		{"vision", d.Capabilities.Vision},
		{"code", d.Capabilities.Code},
		{"reasoning", d.Capabilities.Reasoning},
		{"tools", d.Capabilities.Tools},
		{"moderated", d.Capabilities.Moderated},
	} {
		if c.on {
			caps = append(caps, c.name)
		}
	}
	if len(caps) == 0 {
		return "-"
	}
	return strings.Join(caps, ", ")
}
